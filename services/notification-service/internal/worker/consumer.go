package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"web-shop/services/notification-service/internal/mailer"
	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/rabbit"
)

// Consumer mails the customer when an order is created or shipped.
type Consumer struct {
	Log    zerolog.Logger
	Mailer mailer.Mailer

	RetryPub rabbit.Sender
	DLQPub   rabbit.Sender

	Service     string
	MaxAttempts int
	DLQKey      string
}

func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	c.Log.Info().Msg("notification consumer started")
	for {
		select {
		case <-ctx.Done():
			c.Log.Info().Msg("notification consumer stopped")
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
	var evt models.EventRaw
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.Log.Error().Err(err).Str("rk", d.RoutingKey).Msg("bad json -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}
	if evt.OrderID == "" || evt.ID == "" {
		c.Log.Error().Str("rk", d.RoutingKey).Msg("missing order_id/event_id -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}

	var (
		msg mailer.Message
		err error
	)
	switch d.RoutingKey {
	case models.TypeOrderCreated:
		msg, err = createdMessage(evt)
	case models.TypeOrderSent:
		msg, err = sentMessage(evt)
	default:
		c.Log.Warn().Str("rk", d.RoutingKey).Str("order_id", evt.OrderID).Msg("unexpected routing key -> ack")
		_ = d.Ack(false)
		return
	}
	if err != nil {
		c.Log.Error().Err(err).Str("order_id", evt.OrderID).Msg("bad payload -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}

	log := c.Log.With().Str("order_id", evt.OrderID).Str("type", evt.Type).Logger()
	if msg.To == "" {
		log.Warn().Msg("no recipient, skipped")
		_ = d.Ack(false)
		return
	}

	if err := c.Mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Int32("attempts", rabbit.GetAttempts(d.Headers)).Msg("mail failed -> retry/dlq")
		_ = rabbit.RetryOrDLQ(ctx, d, c.Service, int32(c.MaxAttempts), c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}
	_ = d.Ack(false)
	log.Info().Str("to", msg.To).Msg("mail sent")
}

func createdMessage(evt models.EventRaw) (mailer.Message, error) {
	var p models.OrderCreatedPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return mailer.Message{}, err
	}

	var text, rows strings.Builder
	for _, it := range p.Items {
		line := fmt.Sprintf("%d x %s @ %s", it.Qty, it.ProductName, money(it.PriceCents))
		text.WriteString(line + "\n")
		rows.WriteString("<li>" + html.EscapeString(line) + "</li>")
	}
	total := money(p.TotalCents)
	fmt.Fprintf(&text, "Total: %s\n", total)

	return mailer.Message{
		To:      p.Email,
		Subject: "Order " + evt.OrderID + " received",
		Text:    "Thank you for your order " + evt.OrderID + ".\n\n" + text.String(),
		HTML: fmt.Sprintf("<p>Thank you for your order <strong>%s</strong>.</p><ul>%s</ul><p>Total: <strong>%s</strong></p>",
			html.EscapeString(evt.OrderID), rows.String(), total),
	}, nil
}

func sentMessage(evt models.EventRaw) (mailer.Message, error) {
	var p models.OrderSentPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return mailer.Message{}, err
	}
	return mailer.Message{
		To:      p.Email,
		Subject: "Order " + evt.OrderID + " is on its way",
		Text:    fmt.Sprintf("Your order %s has been sent. Tracking number: %s\n", evt.OrderID, p.TrackingNumber),
		HTML: fmt.Sprintf("<p>Your order <strong>%s</strong> has been sent.</p><p>Tracking number: <strong>%s</strong></p>",
			html.EscapeString(evt.OrderID), html.EscapeString(p.TrackingNumber)),
	}, nil
}

func money(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
