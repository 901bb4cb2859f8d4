package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"unitedkarts/internal/auth"
	"unitedkarts/internal/cart"
	"unitedkarts/internal/catalog"
	"unitedkarts/internal/coupons"
	"unitedkarts/internal/users"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutRejectsVanishedCoupon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	uConf, err := users.NewConf(db)
	require.NoError(t, err)
	catConf, err := catalog.NewConf(db)
	require.NoError(t, err)
	cConf, err := cart.NewConf(db)
	require.NoError(t, err)
	cpConf, err := coupons.NewConf(db)
	require.NoError(t, err)

	h := &Handler{validate: validator.New(), u: uConf, cat: catConf, cConf: cConf, cp: cpConf}

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM cart`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id", "coupon_code"}).
			AddRow(7, "rest-1", "GONE"))
	mock.ExpectQuery(`FROM cart_items`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "food_item_id", "variant_id", "quantity",
			"unit_price", "special_instructions"}).
			AddRow(1, "item-1", nil, 2, 1299, ""))
	mock.ExpectCommit()

	mock.ExpectQuery(`FROM addresses`).
		WithArgs("addr-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "label", "address_line1",
			"address_line2", "city", "state", "postal_code", "latitude", "longitude",
			"is_default", "created_at"}).
			AddRow("addr-1", "user-1", "Home", "12 MG Road", "", "Bengaluru", "KA", "560001",
				nil, nil, true, now))

	mock.ExpectQuery(`FROM restaurants`).
		WithArgs("rest-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "description", "phone",
			"email", "address_line1", "address_line2", "city", "state", "postal_code",
			"cuisine_type", "avg_delivery_time", "min_order_amount", "delivery_fee", "rating",
			"total_ratings", "status", "is_open", "created_at", "updated_at"}).
			AddRow("rest-1", "owner-1", "Spice Route", "", "0801234567", "", "1 Main St", "",
				"Bengaluru", "KA", "560001", "indian", 30, 0, 299, 4.5, 10,
				catalog.RestaurantActive, true, now, now))

	// The cart still carries the code but its row is gone.
	mock.ExpectQuery(`FROM coupons`).
		WithArgs("GONE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "title", "description",
			"coupon_type", "discount_value", "min_order_amount", "max_discount_amount",
			"usage_limit", "used_count", "valid_from", "valid_until", "is_active", "created_at"}))

	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders/checkout",
		`{"delivery_address_id":"addr-1","payment_method":"cash"}`)
	claims := auth.Claims{Roles: []string{auth.RoleCustomer}}
	claims.Subject = "user-1"
	ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
	c.Request = c.Request.WithContext(ctx)

	h.Checkout(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), coupons.ReasonNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
