package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"web-shop/internal/apperr"
	"web-shop/internal/outbox"
	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/pg"
)

// PG stores orders in Postgres. DB may be the pool or an open transaction;
// inside a transaction Create and MarkSent run on a savepoint.
type PG struct{ DB pg.DBTX }

const orderColumns = `id::text, user_id::text, session_id, total_cents, status,
	coalesce(tracking_number, ''), created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	var (
		o        Order
		status   string
		tracking string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.SessionID, &o.TotalCents, &status, &tracking, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	if tracking != "" {
		o.TrackingNumber = &tracking
	}
	return o, nil
}

func (r *PG) Create(ctx context.Context, o Order) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			insert into orders(id, user_id, session_id, total_cents, status, created_at)
			values ($1::uuid, $2::uuid, $3, $4, $5, $6)
		`, o.ID, o.UserID, o.SessionID, o.TotalCents, string(o.Status), o.CreatedAt)
		if err != nil {
			return err
		}
		for _, it := range o.Items {
			_, err = tx.Exec(ctx, `
				insert into order_items(order_id, product_id, product_name, quantity, price_cents)
				values ($1::uuid, $2, $3, $4, $5)
			`, o.ID, it.ProductID, it.ProductName, it.Quantity, it.PriceCents)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PG) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `select `+orderColumns+` from orders where id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order %s", id)
	}
	if err != nil {
		return Order{}, err
	}
	orders := []Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (r *PG) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `select `+orderColumns+` from orders where user_id = $1::uuid order by created_at, id`, userID)
}

func (r *PG) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `select `+orderColumns+` from orders order by created_at, id`)
}

func (r *PG) list(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PG) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
	}
	rows, err := r.DB.Query(ctx, `
		select order_id::text, product_id, product_name, quantity, price_cents
		from order_items
		where order_id = any($1::uuid[])
		order by id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceCents); err != nil {
			return err
		}
		if i, ok := byID[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

// MarkSent updates the row and enqueues orders.sent in one transaction.
func (r *PG) MarkSent(ctx context.Context, id, tracking string, rejectResend bool) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		var userID, email string
		err := tx.QueryRow(ctx, `
			update orders o
			set status = 'send',
			    tracking_number = $2,
			    updated_at = now()
			from users u
			where o.id = $1::uuid
			  and u.id = o.user_id
			  and (not $3::bool or o.status = 'pending')
			returning o.user_id::text, u.email
		`, id, tracking, rejectResend).Scan(&userID, &email)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.explainNoUpdate(ctx, tx, id, rejectResend)
		}
		if err != nil {
			return err
		}
		evt := models.NewEvent(models.TypeOrderSent, id, models.OrderSentPayload{
			UserID:         userID,
			Email:          email,
			TrackingNumber: tracking,
		})
		return outbox.Enqueue(ctx, tx, id, evt)
	})
}

func (r *PG) explainNoUpdate(ctx context.Context, tx pgx.Tx, id string, rejectResend bool) error {
	if !rejectResend {
		return apperr.NotFound("order %s", id)
	}
	var exists bool
	if err := tx.QueryRow(ctx, `select exists(select 1 from orders where id = $1::uuid)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return apperr.Validation("order %s already sent", id)
	}
	return apperr.NotFound("order %s", id)
}
