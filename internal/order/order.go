// Package order owns the order state machine: creation from checkout items
// and the single pending -> send transition.
package order

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"web-shop/internal/apperr"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSend    Status = "send"
)

// Item is a line of an order. Name and price are copies taken when the order
// was created and never follow later catalog changes.
type Item struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	PriceCents  int64  `json:"price_cents"`
}

type Order struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	SessionID      string    `json:"session_id"`
	Items          []Item    `json:"items"`
	TotalCents     int64     `json:"total_cents"`
	Status         Status    `json:"status"`
	TrackingNumber *string   `json:"tracking_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// New builds a pending order. The total is fixed here and never recomputed.
func New(userID, sessionID string, items []Item) (Order, error) {
	if len(items) == 0 {
		return Order{}, apperr.ErrEmptyCart
	}
	var total int64
	for _, it := range items {
		if it.Quantity <= 0 {
			return Order{}, apperr.Validation("product %d: quantity must be positive", it.ProductID)
		}
		if it.PriceCents < 0 {
			return Order{}, apperr.Validation("product %d: negative price", it.ProductID)
		}
		total += it.PriceCents * int64(it.Quantity)
	}
	return Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		SessionID:  sessionID,
		Items:      append([]Item(nil), items...),
		TotalCents: total,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// MarkSent checks and applies the transition on o. Service runs it before
// the repository persists the change as one guarded statement.
func (o *Order) MarkSent(tracking string, rejectResend bool) error {
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		return apperr.Validation("tracking number is empty")
	}
	if rejectResend && o.Status == StatusSend {
		return apperr.Validation("order %s already sent", o.ID)
	}
	o.Status = StatusSend
	o.TrackingNumber = &tracking
	return nil
}
