package cart

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockConf(t *testing.T) (Conf, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conf, err := NewConf(db)
	require.NoError(t, err)
	return conf, mock
}

func TestAddItemMergesExistingLine(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, restaurant_id`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id"}).AddRow(7, "rest-1"))
	mock.ExpectQuery(`SELECT id, quantity`).
		WithArgs(7, "item-1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(42, 2))
	mock.ExpectExec(`UPDATE cart_items`).
		WithArgs(5, 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE cart SET updated_at`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := conf.AddItem(context.Background(), "user-1", "rest-1", "item-1", nil, 3, 1299, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemCreatesCartWhenNoneActive(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, restaurant_id`).
		WithArgs("user-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO cart`).
		WithArgs("user-1", "rest-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(`SELECT id, quantity`).
		WithArgs(9, "item-1", nil).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO cart_items`).
		WithArgs(9, "item-1", nil, 2, 899, "extra spicy").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE cart SET updated_at`).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := conf.AddItem(context.Background(), "user-1", "rest-1", "item-1", nil, 2, 899, "extra spicy")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemRejectsDifferentRestaurant(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, restaurant_id`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id"}).AddRow(7, "rest-1"))
	mock.ExpectRollback()

	err := conf.AddItem(context.Background(), "user-1", "rest-2", "item-1", nil, 1, 500, "")
	assert.ErrorIs(t, err, ErrDifferentRestaurant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	conf, _ := newMockConf(t)

	err := conf.AddItem(context.Background(), "user-1", "rest-1", "item-1", nil, 0, 500, "")
	assert.Error(t, err)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, restaurant_id`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id"}).AddRow(7, "rest-1"))
	mock.ExpectExec(`DELETE FROM cart_items`).
		WithArgs(42, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE cart SET updated_at`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := conf.UpdateQuantity(context.Background(), "user-1", 42, 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateQuantityUnknownLine(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, restaurant_id`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id"}).AddRow(7, "rest-1"))
	mock.ExpectExec(`UPDATE cart_items`).
		WithArgs(4, 99, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := conf.UpdateQuantity(context.Background(), "user-1", 99, 4)
	assert.ErrorIs(t, err, ErrLineNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearWithoutActiveCart(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectExec(`DELETE FROM cart`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := conf.Clear(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoActiveCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveReturnsLines(t *testing.T) {
	conf, mock := newMockConf(t)

	variant := "var-1"
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, restaurant_id, coupon_code`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id", "coupon_code"}).
			AddRow(7, "rest-1", nil))
	mock.ExpectQuery(`SELECT id, food_item_id`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "food_item_id", "variant_id", "quantity", "unit_price", "special_instructions"}).
			AddRow(1, "item-1", nil, 2, 1299, "").
			AddRow(2, "item-2", variant, 1, 899, "no onion"))
	mock.ExpectCommit()

	summary, err := conf.GetActive(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "rest-1", summary.RestaurantID)
	require.Len(t, summary.Lines, 2)
	assert.Equal(t, int64(2598), summary.Lines[0].TotalPrice)
	assert.Equal(t, int64(3497), summary.Subtotal())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveNoCart(t *testing.T) {
	conf, mock := newMockConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, restaurant_id, coupon_code`).
		WithArgs("user-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := conf.GetActive(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoActiveCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}
