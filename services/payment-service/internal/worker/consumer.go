package worker

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/rabbit"
)

// Consumer plays the payment provider: every checkout session it sees is
// settled with payment.confirmed, or payment.failed for FailRate percent.
type Consumer struct {
	Log zerolog.Logger

	EventsPub rabbit.Sender
	RetryPub  rabbit.Sender
	DLQPub    rabbit.Sender

	Service     string
	MaxAttempts int
	DLQKey      string

	FailRate int // 0..100

	// Roll returns a number in [0,100). Nil uses a time-seeded rng.
	Roll func() int
}

func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	c.Log.Info().Msg("payment consumer started")
	if c.Roll == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		c.Roll = func() int { return rng.Intn(100) }
	}

	for {
		select {
		case <-ctx.Done():
			c.Log.Info().Msg("payment consumer stopped")
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

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var evt models.Event[models.CheckoutSessionCreatedPayload]
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.Log.Error().Err(err).Str("rk", d.RoutingKey).Msg("bad json -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}
	if d.RoutingKey != models.TypeCheckoutSessionCreated {
		c.Log.Warn().Str("rk", d.RoutingKey).Msg("unexpected routing key -> ack")
		_ = d.Ack(false)
		return
	}
	p := evt.Payload
	if p.SessionID == "" || p.UserID == "" {
		c.Log.Error().Str("event_id", evt.ID).Msg("missing session_id/user_id -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}

	log := c.Log.With().Str("session_id", p.SessionID).Str("user_id", p.UserID).Logger()

	var (
		rk  string
		out any
	)
	if c.Roll() < c.FailRate {
		rk = models.TypePaymentFailed
		out = models.NewEvent(rk, "", models.PaymentFailedPayload{
			SessionID: p.SessionID,
			UserID:    p.UserID,
			Reason:    "simulated failure",
		})
	} else {
		rk = models.TypePaymentConfirmed
		out = models.NewEvent(rk, "", models.PaymentConfirmedPayload{
			SessionID:   p.SessionID,
			UserID:      p.UserID,
			AmountCents: p.TotalCents,
		})
	}

	pubCtx, cancel := rabbit.WithTimeout(ctx)
	err := rabbit.PublishJSON(pubCtx, c.EventsPub, rk, out, amqp.Table{"x-correlation-id": p.SessionID})
	cancel()
	if err != nil {
		log.Error().Err(err).Str("publish", rk).Msg("publish failed -> retry/dlq")
		_ = rabbit.RetryOrDLQ(ctx, d, c.Service, int32(c.MaxAttempts), c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}

	_ = d.Ack(false)
	if rk == models.TypePaymentFailed {
		log.Warn().Int("fail_rate", c.FailRate).Msg("payment failed")
		return
	}
	log.Info().Int64("amount_cents", p.TotalCents).Msg("payment confirmed")
}
