package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"web-shop/services/outbox-worker/internal/metrics"
	"web-shop/shared/pkg/pg"
	"web-shop/shared/pkg/rabbit"
)

// Runner relays outbox_events to the events exchange. Rows are claimed with
// skip locked so several relays can share the table.
type Runner struct {
	Log zerolog.Logger
	DB  pg.DBTX

	EventsPub rabbit.Sender

	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BackoffMax   time.Duration
}

type eventRow struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	Attempts    int
}

func (r *Runner) Run(ctx context.Context) {
	t := time.NewTicker(r.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Log.Info().Msg("outbox runner stopped")
			return
		case <-t.C:
			if err := r.tick(ctx); err != nil {
				r.Log.Error().Err(err).Msg("outbox tick failed")
			}
		}
	}
}

func (r *Runner) tick(ctx context.Context) error {
	if n, err := Pending(ctx, r.DB); err == nil {
		metrics.OutboxPending.Set(float64(n))
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		select id::text, aggregate_id, event_type, payload::text, attempts
		from outbox_events
		where sent_at is null and next_attempt_at <= now()
		order by created_at
		limit $1
		for update skip locked
	`, r.BatchSize)
	if err != nil {
		return err
	}

	var batch []eventRow
	for rows.Next() {
		var (
			e       eventRow
			payload string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.Attempts); err != nil {
			rows.Close()
			return err
		}
		e.Payload = []byte(payload)
		batch = append(batch, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range batch {
		log := r.Log.With().Str("id", e.ID).Str("type", e.EventType).Str("aggregate_id", e.AggregateID).Logger()

		if e.Attempts >= r.MaxAttempts {
			if _, err := tx.Exec(ctx, `update outbox_events set last_error = $2, sent_at = now() where id = $1::uuid`, e.ID, "max attempts reached"); err != nil {
				return err
			}
			metrics.OutboxDroppedTotal.Inc()
			log.Warn().Int("attempts", e.Attempts).Msg("outbox drop (max attempts), marked sent")
			continue
		}

		pubCtx, cancel := rabbit.WithTimeout(ctx)
		err := r.EventsPub.Publish(pubCtx, e.EventType, e.Payload, amqp.Table{
			"x-outbox-id":    e.ID,
			"x-aggregate-id": e.AggregateID,
		})
		cancel()

		if err == nil {
			metrics.OutboxSentTotal.Inc()
			if _, err := tx.Exec(ctx, `update outbox_events set sent_at = now(), last_error = null where id = $1::uuid`, e.ID); err != nil {
				return err
			}
			continue
		}

		metrics.OutboxPublishErrorsTotal.Inc()
		next := time.Now().Add(backoff(e.Attempts+1, r.BackoffMax))
		if _, err2 := tx.Exec(ctx, `
			update outbox_events
			set attempts = attempts + 1,
			    next_attempt_at = $2,
			    last_error = $3
			where id = $1::uuid
		`, e.ID, next, err.Error()); err2 != nil {
			return err2
		}
		log.Error().Err(err).Int("attempts", e.Attempts+1).Time("next", next).Msg("publish failed -> retry scheduled")
	}

	return tx.Commit(ctx)
}

// Pending counts events not yet relayed.
func Pending(ctx context.Context, db pg.DBTX) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var n int
	err := db.QueryRow(ctx, `select count(*) from outbox_events where sent_at is null`).Scan(&n)
	return n, err
}

func backoff(attempt int, limit time.Duration) time.Duration {
	d := time.Second << min(attempt, 20)
	if d > limit {
		return limit
	}
	return d
}
