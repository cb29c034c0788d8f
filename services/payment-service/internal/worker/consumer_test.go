package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/rabbit"
	"web-shop/shared/pkg/rabbit/rabbittest"
)

type fixture struct {
	c      *Consumer
	events *rabbittest.Sender
	retry  *rabbittest.Sender
	dlq    *rabbittest.Sender
}

func newFixture(failRate, roll int) *fixture {
	f := &fixture{events: &rabbittest.Sender{}, retry: &rabbittest.Sender{}, dlq: &rabbittest.Sender{}}
	f.c = &Consumer{
		Log:         zerolog.Nop(),
		EventsPub:   f.events,
		RetryPub:    f.retry,
		DLQPub:      f.dlq,
		Service:     "payment-service",
		MaxAttempts: 3,
		DLQKey:      "payment-service.dlq",
		FailRate:    failRate,
		Roll:        func() int { return roll },
	}
	return f
}

func sessionEvent(sessionID, userID string, total int64) models.Event[models.CheckoutSessionCreatedPayload] {
	return models.NewEvent(models.TypeCheckoutSessionCreated, "", models.CheckoutSessionCreatedPayload{
		SessionID:  sessionID,
		UserID:     userID,
		TotalCents: total,
	})
}

func TestHandle_Confirms(t *testing.T) {
	f := newFixture(0, 50)
	d, ack := rabbittest.Delivery(models.TypeCheckoutSessionCreated, sessionEvent("s1", "u1", 4398), nil)

	f.c.handle(context.Background(), d)

	assert.Equal(t, 1, ack.Acked)
	msgs := f.events.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.TypePaymentConfirmed, msgs[0].RoutingKey)

	var evt models.Event[models.PaymentConfirmedPayload]
	require.NoError(t, json.Unmarshal(msgs[0].Body, &evt))
	assert.Equal(t, models.PaymentConfirmedPayload{SessionID: "s1", UserID: "u1", AmountCents: 4398}, evt.Payload)
	assert.Equal(t, "s1", msgs[0].Headers["x-correlation-id"])
}

func TestHandle_FailsUnderFailRate(t *testing.T) {
	f := newFixture(30, 10)
	d, ack := rabbittest.Delivery(models.TypeCheckoutSessionCreated, sessionEvent("s1", "u1", 100), nil)

	f.c.handle(context.Background(), d)

	assert.Equal(t, 1, ack.Acked)
	msgs := f.events.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.TypePaymentFailed, msgs[0].RoutingKey)

	var evt models.Event[models.PaymentFailedPayload]
	require.NoError(t, json.Unmarshal(msgs[0].Body, &evt))
	assert.Equal(t, "s1", evt.Payload.SessionID)
	assert.NotEmpty(t, evt.Payload.Reason)
}

func TestHandle_MissingSessionGoesToDLQ(t *testing.T) {
	f := newFixture(0, 0)
	d, ack := rabbittest.Delivery(models.TypeCheckoutSessionCreated, sessionEvent("", "u1", 100), nil)

	f.c.handle(context.Background(), d)

	assert.Equal(t, 1, ack.Acked)
	assert.Empty(t, f.events.Messages())
	require.Len(t, f.dlq.Messages(), 1)
	assert.Equal(t, "payment-service.dlq", f.dlq.Messages()[0].RoutingKey)
}

func TestHandle_BadJSONGoesToDLQ(t *testing.T) {
	f := newFixture(0, 0)
	d, _ := rabbittest.Delivery(models.TypeCheckoutSessionCreated, "{", nil)

	f.c.handle(context.Background(), d)

	assert.Len(t, f.dlq.Messages(), 1)
}

func TestHandle_PublishFailureRetries(t *testing.T) {
	f := newFixture(0, 0)
	f.events.Err = errors.New("broker down")
	d, ack := rabbittest.Delivery(models.TypeCheckoutSessionCreated, sessionEvent("s1", "u1", 100), nil)

	f.c.handle(context.Background(), d)

	assert.Equal(t, 1, ack.Acked)
	msgs := f.retry.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, rabbit.RetryKey("payment-service", models.TypeCheckoutSessionCreated), msgs[0].RoutingKey)
	assert.EqualValues(t, 1, msgs[0].Headers["x-attempts"])
}

func TestHandle_UnexpectedKeyAcked(t *testing.T) {
	f := newFixture(0, 0)
	d, ack := rabbittest.Delivery("orders.created", sessionEvent("s1", "u1", 100), nil)

	f.c.handle(context.Background(), d)

	assert.Equal(t, 1, ack.Acked)
	assert.Empty(t, f.events.Messages())
}
