package worker

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"web-shop/internal/apperr"
	"web-shop/internal/order"
	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/rabbit"
)

type Completer interface {
	CompleteCheckout(ctx context.Context, userID, sessionID string) (order.Order, bool, error)
}

// Confirmations turns payment.confirmed into orders. Delivery is
// at-least-once; the checkout ledger makes redelivery harmless.
type Confirmations struct {
	Log      zerolog.Logger
	Checkout Completer

	RetryPub rabbit.Sender
	DLQPub   rabbit.Sender

	Service     string
	MaxAttempts int
	DLQKey      string
}

func (c *Confirmations) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	c.Log.Info().Msg("confirmation consumer started")
	for {
		select {
		case <-ctx.Done():
			c.Log.Info().Msg("confirmation consumer stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.Log.Info().Msg("deliveries closed")
				return
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Confirmations) handle(ctx context.Context, d amqp.Delivery) {
	var evt models.EventRaw
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.Log.Error().Err(err).Str("rk", d.RoutingKey).Msg("bad json -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}

	switch d.RoutingKey {
	case models.TypePaymentFailed:
		var p models.PaymentFailedPayload
		_ = json.Unmarshal(evt.Payload, &p)
		c.Log.Warn().
			Str("session_id", p.SessionID).
			Str("user_id", p.UserID).
			Str("reason", p.Reason).
			Msg("payment failed, cart kept")
		_ = d.Ack(false)

	case models.TypePaymentConfirmed:
		var p models.PaymentConfirmedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.SessionID == "" || p.UserID == "" {
			c.Log.Error().Str("event_id", evt.ID).Msg("confirmation without session_id/user_id -> dlq")
			_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
			return
		}
		c.confirm(ctx, d, p)

	default:
		c.Log.Warn().Str("rk", d.RoutingKey).Msg("unexpected routing key -> ack")
		_ = d.Ack(false)
	}
}

func (c *Confirmations) confirm(ctx context.Context, d amqp.Delivery, p models.PaymentConfirmedPayload) {
	log := c.Log.With().Str("session_id", p.SessionID).Str("user_id", p.UserID).Logger()

	o, dup, err := c.Checkout.CompleteCheckout(ctx, p.UserID, p.SessionID)
	if err == nil {
		_ = d.Ack(false)
		log.Info().Str("order_id", o.ID).Bool("duplicate", dup).Msg("confirmation processed")
		return
	}
	if apperr.Permanent(err) {
		log.Error().Err(err).Str("code", apperr.Code(err)).Msg("confirmation rejected -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}
	log.Error().Err(err).Int32("attempts", rabbit.GetAttempts(d.Headers)).Msg("confirmation failed -> retry/dlq")
	_ = rabbit.RetryOrDLQ(ctx, d, c.Service, int32(c.MaxAttempts), c.RetryPub, c.DLQPub, c.DLQKey)
}
