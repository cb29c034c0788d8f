// Package outbox writes integration events in the same transaction as the
// state change they describe. services/outbox-worker relays them.
package outbox

import (
	"context"
	"encoding/json"

	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/pg"
)

// Enqueue stores the full event envelope; the relay publishes it verbatim
// with the event type as routing key.
func Enqueue[T any](ctx context.Context, db pg.DBTX, aggregateID string, evt models.Event[T]) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		insert into outbox_events(
			id, aggregate_id, event_type, payload,
			attempts, next_attempt_at, created_at
		)
		values ($1::uuid, $2, $3, $4::jsonb, 0, now(), now())
	`, evt.ID, aggregateID, evt.Type, string(b))
	return err
}
