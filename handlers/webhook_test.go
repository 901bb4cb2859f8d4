package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"unitedkarts/internal/orders"
	"unitedkarts/internal/users"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEmailSurvivesRequestCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	oConf, err := orders.NewConf(db)
	require.NoError(t, err)
	uConf, err := users.NewConf(db)
	require.NoError(t, err)

	h := &Handler{o: oConf, u: uConf}
	t.Setenv("SMTP_HOST", "")

	now := time.Now()
	mock.ExpectExec(`UPDATE orders`).
		WithArgs("order-1", orders.PaymentPaid, "pi_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM orders WHERE id`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_number", "customer_id", "restaurant_id", "delivery_partner_id",
			"delivery_address_id", "subtotal", "tax_amount", "delivery_fee", "discount_amount",
			"total_amount", "coupon_code", "payment_method", "payment_status", "payment_id",
			"order_status", "special_instructions", "cancellation_reason", "created_at", "updated_at",
		}).AddRow(
			"order-1", "UK-1", "cust-1", "rest-1", nil, "addr-1",
			3497, 280, 299, 0, 4076, nil, orders.MethodCard, orders.PaymentPaid, "pi_1",
			"pending", "", "", now, now,
		))
	mock.ExpectQuery(`FROM order_items`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "food_item_id", "variant_id",
			"quantity", "unit_price", "total_price", "special_instructions"}).
			AddRow(1, "order-1", "item-1", nil, 2, 1299, 2598, ""))
	mock.ExpectQuery(`FROM order_tracking`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "status", "changed_by",
			"latitude", "longitude", "notes", "created_at"}).
			AddRow(1, "order-1", "pending", "cust-1", nil, nil, nil, now))

	// This lookup lands after the handler has returned and the request
	// context is already gone; it must still be served.
	mock.ExpectQuery(`FROM users`).
		WithArgs("cust-1").
		WillDelayFor(50 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "roles",
			"stripe_customer_id", "created_at", "updated_at"}).
			AddRow("cust-1", "Asha", "asha@example.com", "9990001111", "{customer}", "", now, now))

	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders/webhook",
		`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"order_id":"order-1"}}}}`)
	reqCtx, cancel := context.WithCancel(c.Request.Context())
	c.Request = c.Request.WithContext(reqCtx)

	h.Webhook(c)
	cancel()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders/webhook",
		`{"type":"charge.updated","data":{"object":{}}}`)

	testHandler().Webhook(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "not handled")
}

func TestWebhookRequiresOrderMetadata(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders/webhook",
		`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{}}}}`)

	testHandler().Webhook(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
