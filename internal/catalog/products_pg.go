package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"web-shop/internal/apperr"
	"web-shop/shared/pkg/pg"
)

type ProductsPG struct{ DB pg.DBTX }

func (r *ProductsPG) Resolve(ctx context.Context, productID int64) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		select id, coalesce(category_id, 0), name, description, image_url, price_cents
		from products
		where id = $1
	`, productID).Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.ImageURL, &p.PriceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product %d", productID)
	}
	return p, err
}

func (r *ProductsPG) UpsertCategory(ctx context.Context, c Category) error {
	_, err := r.DB.Exec(ctx, `
		insert into categories(id, name, description, image_url, updated_at)
		values ($1, $2, $3, $4, now())
		on conflict (id) do update
		set name = excluded.name,
		    description = excluded.description,
		    image_url = excluded.image_url,
		    updated_at = now()
	`, c.ID, c.Name, c.Description, c.ImageURL)
	return err
}

func (r *ProductsPG) DeleteCategory(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx, `delete from categories where id = $1`, id)
	return err
}

func (r *ProductsPG) UpsertProduct(ctx context.Context, p Product) error {
	_, err := r.DB.Exec(ctx, `
		insert into products(id, category_id, name, description, image_url, price_cents, updated_at)
		values ($1, nullif($2::bigint, 0), $3, $4, $5, $6, now())
		on conflict (id) do update
		set category_id = excluded.category_id,
		    name = excluded.name,
		    description = excluded.description,
		    image_url = excluded.image_url,
		    price_cents = excluded.price_cents,
		    updated_at = now()
	`, p.ID, p.CategoryID, p.Name, p.Description, p.ImageURL, p.PriceCents)
	return err
}

func (r *ProductsPG) DeleteProduct(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx, `delete from products where id = $1`, id)
	return err
}
