package cart

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"web-shop/internal/apperr"
	"web-shop/shared/pkg/pg"
)

type PG struct{ DB pg.DBTX }

func (r *PG) Insert(ctx context.Context, userID string, productID int64, quantity int) (Item, error) {
	it := Item{UserID: userID, ProductID: productID, Quantity: quantity}
	err := r.DB.QueryRow(ctx, `
		insert into cart_items(user_id, product_id, quantity)
		values ($1::uuid, $2, $3)
		returning id, created_at
	`, userID, productID, quantity).Scan(&it.ID, &it.CreatedAt)
	return it, err
}

func (r *PG) ListByUser(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		select id, user_id::text, product_id, quantity, created_at
		from cart_items
		where user_id = $1::uuid
		order by id
	`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt)
		return it, err
	})
}

func (r *PG) Clear(ctx context.Context, userID string, ids []int64) error {
	ct, err := r.DB.Exec(ctx, `delete from cart_items where user_id = $1::uuid and id = any($2::bigint[])`, userID, ids)
	if err != nil {
		return err
	}
	if n := ct.RowsAffected(); n != int64(len(ids)) {
		return fmt.Errorf("%w: cleared %d of %d entries", ErrChanged, n, len(ids))
	}
	return nil
}

func (r *PG) Remove(ctx context.Context, userID string, itemID int64) error {
	ct, err := r.DB.Exec(ctx, `delete from cart_items where id = $1 and user_id = $2::uuid`, itemID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("cart item %d", itemID)
	}
	return nil
}
