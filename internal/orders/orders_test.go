package orders

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderTestColumns = []string{
	"id", "order_number", "customer_id", "restaurant_id", "delivery_partner_id",
	"delivery_address_id", "subtotal", "tax_amount", "delivery_fee", "discount_amount",
	"total_amount", "coupon_code", "payment_method", "payment_status", "payment_id",
	"order_status", "special_instructions", "cancellation_reason", "created_at", "updated_at",
}

func orderTestRow(id, number string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderTestColumns).AddRow(
		id, number, "cust-1", "rest-1", nil, "addr-1",
		3497, 280, 299, 0, 4076, nil, MethodCash, PaymentPending, nil,
		"pending", "", "", now, now,
	)
}

func newMockConf(t *testing.T) (*Conf, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conf, err := NewConf(db)
	require.NoError(t, err)
	return conf, mock
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	conf, _ := newMockConf(t)

	_, err := conf.CreateOrder(context.Background(), CreateOrderParams{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderIdempotencyKeyRace(t *testing.T) {
	conf, mock := newMockConf(t)
	key := "2f0c8a5e-46a3-4a83-9a4c-6f3a7a1f9b10"

	// The pre-check misses: the concurrent winner commits between the lookup
	// and our insert.
	mock.ExpectQuery(`WHERE idempotency_key`).
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows(orderTestColumns))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_idempotency_key_key"})
	mock.ExpectRollback()

	mock.ExpectQuery(`WHERE idempotency_key`).
		WithArgs(key).
		WillReturnRows(orderTestRow("order-1", "UK-1"))
	mock.ExpectQuery(`FROM order_items`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "food_item_id", "variant_id",
			"quantity", "unit_price", "total_price", "special_instructions"}).
			AddRow(1, "order-1", "item-1", nil, 2, 1299, 2598, ""))

	order, err := conf.CreateOrder(context.Background(), CreateOrderParams{
		ID:                "order-2",
		OrderNumber:       "UK-2",
		IdempotencyKey:    &key,
		CustomerID:        "cust-1",
		RestaurantID:      "rest-1",
		DeliveryAddressID: "addr-1",
		CartID:            7,
		Items:             []NewItem{{FoodItemID: "item-1", Quantity: 2, UnitPrice: 1299}},
		PaymentMethod:     MethodCash,
	})
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "UK-1", order.OrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderOtherUniqueViolationStillFails(t *testing.T) {
	conf, mock := newMockConf(t)
	key := "2f0c8a5e-46a3-4a83-9a4c-6f3a7a1f9b10"

	mock.ExpectQuery(`WHERE idempotency_key`).
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows(orderTestColumns))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"})
	mock.ExpectRollback()

	_, err := conf.CreateOrder(context.Background(), CreateOrderParams{
		ID:                "order-2",
		OrderNumber:       "UK-2",
		IdempotencyKey:    &key,
		CustomerID:        "cust-1",
		RestaurantID:      "rest-1",
		DeliveryAddressID: "addr-1",
		CartID:            7,
		Items:             []NewItem{{FoodItemID: "item-1", Quantity: 1, UnitPrice: 500}},
		PaymentMethod:     MethodCash,
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRequiresReason(t *testing.T) {
	conf, _ := newMockConf(t)

	_, err := conf.Cancel(context.Background(), "order-1", "user-1", "")
	assert.ErrorIs(t, err, ErrReasonRequired)
}

func TestUpdateStatusRejectsIllegalMove(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT order_status FROM orders`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"order_status"}).AddRow("pending"))
	mock.ExpectRollback()

	_, err := conf.UpdateStatus(context.Background(), "order-1", StatusDelivered, "user-1", nil, nil, nil)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusPending, invalid.From)
	assert.Equal(t, StatusDelivered, invalid.To)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT order_status FROM orders`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"order_status"}))
	mock.ExpectRollback()

	_, err := conf.UpdateStatus(context.Background(), "missing", StatusConfirmed, "user-1", nil, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRefundedRequiresCapturedPayment(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT order_status, payment_status FROM orders`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"order_status", "payment_status"}).
			AddRow("cancelled", PaymentPending))
	mock.ExpectRollback()

	_, err := conf.MarkRefunded(context.Background(), "order-1", "admin-1")
	assert.ErrorIs(t, err, ErrNotRefundable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRefundedRejectsUncancelledOrder(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT order_status, payment_status FROM orders`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"order_status", "payment_status"}).
			AddRow("delivered", PaymentPaid))
	mock.ExpectRollback()

	var invalid *InvalidTransitionError
	_, err := conf.MarkRefunded(context.Background(), "order-1", "admin-1")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusDelivered, invalid.From)
	assert.NoError(t, mock.ExpectationsWereMet())
}
