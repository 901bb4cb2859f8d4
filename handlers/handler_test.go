package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"unitedkarts/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func newTestContext(t *testing.T, method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func testHandler() *Handler {
	return &Handler{validate: validator.New()}
}

func TestSignupRejectsInvalidJSON(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/v1/auth/signup", "not json")

	testHandler().Signup(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupRejectsOversizedBody(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", 6*1024) + `"}`
	c, w := newTestContext(t, http.MethodPost, "/api/v1/auth/signup", body)

	testHandler().Signup(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too large")
}

func TestSignupRejectsMissingFields(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/v1/auth/signup",
		`{"name":"A","email":"not-an-email","phone":"123","password":"pw123456","role":"customer"}`)

	testHandler().Signup(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email")
}

func TestAddToCartWithoutClaims(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/v1/cart/items",
		`{"food_item_id":"item-1","quantity":1}`)

	testHandler().AddToCart(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutRejectsMalformedIdempotencyKey(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders/checkout",
		`{"delivery_address_id":"addr-1","payment_method":"cash"}`)
	c.Request.Header.Set("Idempotency-Key", "not-a-uuid")

	claims := auth.Claims{Roles: []string{auth.RoleCustomer}}
	claims.Subject = "user-1"
	ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
	c.Request = c.Request.WithContext(ctx)

	testHandler().Checkout(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Idempotency-Key")
}

func TestValidationMessage(t *testing.T) {
	v := validator.New()

	type payload struct {
		Email string `validate:"required,email"`
		Role  string `validate:"oneof=customer admin"`
	}

	err := v.Struct(payload{Email: "", Role: "customer"})
	assert.Equal(t, "Email value missing", validationMessage(err))

	err = v.Struct(payload{Email: "nope", Role: "customer"})
	assert.Equal(t, "Email is not a valid email", validationMessage(err))

	err = v.Struct(payload{Email: "a@b.com", Role: "ghost"})
	assert.Equal(t, "Role must be one of: customer admin", validationMessage(err))
}
