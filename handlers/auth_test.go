package handlers

import (
	"testing"

	"unitedkarts/internal/users"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreStripeCustomerRecordsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	uConf, err := users.NewConf(db)
	require.NoError(t, err)

	h := &Handler{u: uConf}

	mock.ExpectExec(`UPDATE users SET stripe_customer_id`).
		WithArgs("user-1", "cus_123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	h.storeStripeCustomer("trace-1", "user-1", "cus_123")
	assert.NoError(t, mock.ExpectationsWereMet())
}
