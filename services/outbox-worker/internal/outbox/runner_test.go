package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web-shop/shared/pkg/rabbit/rabbittest"
)

// failingFor rejects publishes on one routing key.
type failingFor struct {
	rabbittest.Sender
	key string
}

func (f *failingFor) Publish(ctx context.Context, rk string, body []byte, h amqp.Table) error {
	if rk == f.key {
		return errors.New("boom")
	}
	return f.Sender.Publish(ctx, rk, body, h)
}

func TestRunner_TickPublishesAndReschedules(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pub := &failingFor{key: "orders.sent"}
	r := &Runner{Log: zerolog.Nop(), DB: mock, EventsPub: pub, BatchSize: 50, MaxAttempts: 3, BackoffMax: time.Minute}

	mock.ExpectQuery(`select count`).WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectBegin()
	mock.ExpectQuery(`from outbox_events`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "aggregate_id", "event_type", "payload", "attempts"}).
			AddRow("e1", "o1", "orders.created", `{"id":"e1"}`, 0).
			AddRow("e2", "o2", "orders.sent", `{"id":"e2"}`, 1).
			AddRow("e3", "o3", "orders.created", `{"id":"e3"}`, 3))
	mock.ExpectExec(`set sent_at = now`).WithArgs("e1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`set attempts = attempts`).
		WithArgs("e2", pgxmock.AnyArg(), "boom").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`set last_error`).WithArgs("e3", "max attempts reached").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, r.tick(context.Background()))

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "orders.created", msgs[0].RoutingKey)
	assert.JSONEq(t, `{"id":"e1"}`, string(msgs[0].Body))
	assert.Equal(t, "o1", msgs[0].Headers["x-aggregate-id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1, time.Minute))
	assert.Equal(t, 8*time.Second, backoff(3, time.Minute))
	assert.Equal(t, time.Minute, backoff(30, time.Minute))
}
