package checkout

import (
	"context"

	"web-shop/internal/auth"
	"web-shop/internal/cart"
	"web-shop/internal/catalog"
	"web-shop/internal/order"
	"web-shop/shared/pkg/models"
)

// Claim is the ledger row for a confirmed session. New is true when this call
// inserted it.
type Claim struct {
	New     bool
	UserID  string
	OrderID string
}

// SessionLedger remembers which checkout sessions already produced an order.
type SessionLedger interface {
	Claim(ctx context.Context, sessionID, userID string) (Claim, error)
	Link(ctx context.Context, sessionID, orderID string) error
}

type Users interface {
	Get(ctx context.Context, userID string) (auth.Identity, error)
}

type Events interface {
	Enqueue(ctx context.Context, aggregateID string, evt models.Event[models.OrderCreatedPayload]) error
}

// Stores are the repositories of one unit of work. Everything written through
// them commits or rolls back together.
type Stores struct {
	Sessions SessionLedger
	Carts    cart.Repo
	Orders   order.Repo
	Catalog  catalog.Catalog
	Users    Users
	Events   Events
}

// UnitOfWork runs fn atomically and serialized against other units for the
// same user. A non-nil error from fn discards every write.
type UnitOfWork interface {
	Do(ctx context.Context, userID string, fn func(ctx context.Context, s Stores) error) error
}
