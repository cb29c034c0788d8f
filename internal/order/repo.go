package order

import "context"

type Repo interface {
	// Create persists the order with all its items or nothing.
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// MarkSent sets status and tracking number together. With rejectResend
	// an already sent order fails with apperr.ErrValidation.
	MarkSent(ctx context.Context, id, tracking string, rejectResend bool) error
}
