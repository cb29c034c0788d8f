package worker

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"web-shop/internal/apperr"
	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/rabbit"
)

type CatalogApplier interface {
	Apply(ctx context.Context, eventType string, payload json.RawMessage) error
}

// CatalogKeys are the routing keys the catalog queue is bound to.
var CatalogKeys = []string{
	models.TypeCategoryCreated,
	models.TypeCategoryUpdated,
	models.TypeCategoryDeleted,
	models.TypeProductCreated,
	models.TypeProductUpdated,
	models.TypeProductDeleted,
}

// Catalog keeps the local product tables in step with the catalog feed.
type Catalog struct {
	Log  zerolog.Logger
	Feed CatalogApplier

	RetryPub rabbit.Sender
	DLQPub   rabbit.Sender

	Service     string
	MaxAttempts int
	DLQKey      string
}

func (c *Catalog) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	c.Log.Info().Msg("catalog consumer started")
	for {
		select {
		case <-ctx.Done():
			c.Log.Info().Msg("catalog consumer stopped")
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

func (c *Catalog) handle(ctx context.Context, d amqp.Delivery) {
	var evt models.EventRaw
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.Log.Error().Err(err).Str("rk", d.RoutingKey).Msg("bad json -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}

	err := c.Feed.Apply(ctx, d.RoutingKey, evt.Payload)
	switch {
	case err == nil:
		_ = d.Ack(false)
		c.Log.Debug().Str("rk", d.RoutingKey).Str("event_id", evt.ID).Msg("catalog event applied")
	case apperr.Permanent(err):
		c.Log.Error().Err(err).Str("rk", d.RoutingKey).Msg("catalog event rejected -> dlq")
		_ = rabbit.ToDLQ(ctx, d, c.Service, c.RetryPub, c.DLQPub, c.DLQKey)
	default:
		c.Log.Error().Err(err).Str("rk", d.RoutingKey).Msg("catalog event failed -> retry/dlq")
		_ = rabbit.RetryOrDLQ(ctx, d, c.Service, int32(c.MaxAttempts), c.RetryPub, c.DLQPub, c.DLQKey)
	}
}
