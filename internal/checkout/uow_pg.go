package checkout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"web-shop/internal/auth"
	"web-shop/internal/cart"
	"web-shop/internal/catalog"
	"web-shop/internal/order"
	"web-shop/internal/outbox"
	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/pg"
)

// PGUnitOfWork runs a unit in one transaction holding a transaction-scoped
// advisory lock on the user id, so processes sharing the database serialize
// per user as well.
type PGUnitOfWork struct{ DB pg.DBTX }

func (u *PGUnitOfWork) Do(ctx context.Context, userID string, fn func(ctx context.Context, s Stores) error) error {
	return pgx.BeginFunc(ctx, u.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `select pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
			return err
		}
		return fn(ctx, Stores{
			Sessions: &SessionsPG{DB: tx},
			Carts:    &cart.PG{DB: tx},
			Orders:   &order.PG{DB: tx},
			Catalog:  &catalog.ProductsPG{DB: tx},
			Users:    &auth.UsersPG{DB: tx},
			Events:   &outboxEvents{DB: tx},
		})
	})
}

type SessionsPG struct{ DB pg.DBTX }

func (r *SessionsPG) Claim(ctx context.Context, sessionID, userID string) (Claim, error) {
	ct, err := r.DB.Exec(ctx, `
		insert into checkout_sessions(session_id, user_id)
		values ($1, $2::uuid)
		on conflict (session_id) do nothing
	`, sessionID, userID)
	if err != nil {
		return Claim{}, err
	}
	if ct.RowsAffected() == 1 {
		return Claim{New: true, UserID: userID}, nil
	}

	c := Claim{}
	err = r.DB.QueryRow(ctx, `
		select user_id::text, coalesce(order_id::text, '')
		from checkout_sessions
		where session_id = $1
	`, sessionID).Scan(&c.UserID, &c.OrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Claim{}, errors.New("checkout session vanished after conflict")
	}
	return c, err
}

func (r *SessionsPG) Link(ctx context.Context, sessionID, orderID string) error {
	_, err := r.DB.Exec(ctx, `update checkout_sessions set order_id = $2::uuid where session_id = $1`, sessionID, orderID)
	return err
}

type outboxEvents struct{ DB pg.DBTX }

func (o *outboxEvents) Enqueue(ctx context.Context, aggregateID string, evt models.Event[models.OrderCreatedPayload]) error {
	return outbox.Enqueue(ctx, o.DB, aggregateID, evt)
}
