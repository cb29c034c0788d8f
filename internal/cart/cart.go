// Package cart holds per-user line items waiting for checkout.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"web-shop/internal/apperr"
	"web-shop/internal/catalog"
)

// Item is one cart entry. A user may hold several entries for the same
// product; the quantity for that product is their sum.
type Item struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrChanged means entries read for checkout were removed before the cart
// was cleared. The checkout transaction rolls back and is retried.
var ErrChanged = errors.New("cart changed during checkout")

type Repo interface {
	Insert(ctx context.Context, userID string, productID int64, quantity int) (Item, error)
	// ListByUser returns entries in insertion order.
	ListByUser(ctx context.Context, userID string) ([]Item, error)
	// Clear deletes exactly the entries ids of userID, the ones an order was
	// built from. Entries added meanwhile stay. It fails when any of ids is
	// already gone.
	Clear(ctx context.Context, userID string, ids []int64) error
	// Remove returns apperr.ErrNotFound when the entry does not belong to userID.
	Remove(ctx context.Context, userID string, itemID int64) error
}

type Service struct {
	Repo    Repo
	Catalog catalog.Catalog
}

func (s *Service) Add(ctx context.Context, userID string, productID int64, quantity int) (Item, error) {
	if quantity <= 0 {
		return Item{}, apperr.Validation("quantity must be positive, got %d", quantity)
	}
	if _, err := s.Catalog.Resolve(ctx, productID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Item{}, apperr.Validation("product %d does not exist", productID)
		}
		return Item{}, fmt.Errorf("resolve product: %w", err)
	}
	return s.Repo.Insert(ctx, userID, productID, quantity)
}

func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID string, itemID int64) error {
	return s.Repo.Remove(ctx, userID, itemID)
}
