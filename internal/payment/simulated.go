package payment

import (
	"context"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/rabbit"
)

// Simulated hands the session to services/payment-service over the broker.
// That worker later answers with payment.confirmed or payment.failed.
type Simulated struct {
	Pub rabbit.Sender
	Log zerolog.Logger
}

func (g *Simulated) CreateSession(ctx context.Context, items []CheckoutItem) (string, error) {
	sessionID := uuid.NewString()
	lines := make([]models.CheckoutLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, models.CheckoutLine{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			PriceCents:  it.PriceCents,
			Quantity:    it.Quantity,
		})
	}
	evt := models.NewEvent(models.TypeCheckoutSessionCreated, "", models.CheckoutSessionCreatedPayload{
		SessionID:  sessionID,
		UserID:     items[0].UserID,
		TotalCents: Total(items),
		Lines:      lines,
	})

	pubCtx, cancel := rabbit.WithTimeout(ctx)
	defer cancel()
	if err := rabbit.PublishJSON(pubCtx, g.Pub, evt.Type, evt, amqp.Table{"x-correlation-id": sessionID}); err != nil {
		return "", err
	}
	g.Log.Info().Str("session_id", sessionID).Int64("total_cents", evt.Payload.TotalCents).Msg("checkout session created")
	return sessionID, nil
}
