package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web-shop/internal/apperr"
)

var orderCols = []string{"id", "user_id", "session_id", "total_cents", "status", "tracking_number", "created_at"}

func TestPG_CreateWritesOrderAndItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o, err := New(uuid.NewString(), "sess-1", []Item{
		{ProductID: 1, ProductName: "Mug", Quantity: 1, PriceCents: 1999},
		{ProductID: 2, ProductName: "Pot", Quantity: 2, PriceCents: 500},
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`insert into orders`).
		WithArgs(o.ID, o.UserID, "sess-1", int64(2999), "pending", o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`insert into order_items`).
		WithArgs(o.ID, int64(1), "Mug", 1, int64(1999)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`insert into order_items`).
		WithArgs(o.ID, int64(2), "Pot", 2, int64(500)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, (&PG{DB: mock}).Create(context.Background(), o))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_CreateRollsBackOnItemFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o, err := New(uuid.NewString(), "sess-1", []Item{{ProductID: 1, ProductName: "Mug", Quantity: 1, PriceCents: 1}})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`insert into orders`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`insert into order_items`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = (&PG{DB: mock}).Create(context.Background(), o)
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.NewString()
	now := time.Now()
	mock.ExpectQuery(`from orders where id`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(id, "u1", "s1", int64(1999), "pending", "", now))
	mock.ExpectQuery(`from order_items`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"order_id", "product_id", "product_name", "quantity", "price_cents"}).
			AddRow(id, int64(1), "Mug", 1, int64(1999)))

	o, err := (&PG{DB: mock}).Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.TrackingNumber)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Mug", o.Items[0].ProductName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_GetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`from orders where id`).WillReturnError(pgx.ErrNoRows)

	_, err = (&PG{DB: mock}).Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPG_MarkSentEnqueuesEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.NewString()
	mock.ExpectBegin()
	mock.ExpectQuery(`update orders o`).
		WithArgs(id, "1234567890", false).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "email"}).AddRow("u1", "u1@shop.test"))
	mock.ExpectExec(`insert into outbox_events`).
		WithArgs(pgxmock.AnyArg(), id, "orders.sent", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, (&PG{DB: mock}).MarkSent(context.Background(), id, "1234567890", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_MarkSentMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.NewString()
	mock.ExpectBegin()
	mock.ExpectQuery(`update orders o`).WithArgs(id, "1", false).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err = (&PG{DB: mock}).MarkSent(context.Background(), id, "1", false)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_MarkSentGuardRejectsResend(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.NewString()
	mock.ExpectBegin()
	mock.ExpectQuery(`update orders o`).WithArgs(id, "2", true).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`select exists`).WithArgs(id).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err = (&PG{DB: mock}).MarkSent(context.Background(), id, "2", true)
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}
