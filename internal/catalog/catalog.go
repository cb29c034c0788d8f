// Package catalog is the read side of the product feed: checkout resolves
// products here, and the feed consumer keeps the tables current.
package catalog

import (
	"context"
	"math"
)

type Product struct {
	ID          int64
	CategoryID  int64
	Name        string
	Description string
	ImageURL    string
	PriceCents  int64
}

type Category struct {
	ID          int64
	Name        string
	Description string
	ImageURL    string
}

// Catalog resolves a product to its current name and price. Unknown ids
// return apperr.ErrNotFound.
type Catalog interface {
	Resolve(ctx context.Context, productID int64) (Product, error)
}

// Store is the write side used by the feed handlers. Upserts and deletes
// must be safe to repeat for the same id.
type Store interface {
	UpsertCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, id int64) error
	UpsertProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// PriceToCents converts the feed's decimal price to minor units.
func PriceToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}
