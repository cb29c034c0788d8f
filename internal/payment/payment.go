// Package payment holds the hosted payment gateway clients.
package payment

import (
	"context"
	"errors"
)

// CheckoutItem is a line sent to the gateway. Name and price are copied when
// the item is built so the session shows the prices of that moment.
type CheckoutItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Quantity    int    `json:"quantity"`
	UserID      string `json:"user_id"`
}

// ErrRejected marks a request the gateway refused as invalid. Sending it
// again gives the same answer.
var ErrRejected = errors.New("rejected by payment gateway")

type Gateway interface {
	// CreateSession returns the gateway's session id for the items.
	CreateSession(ctx context.Context, items []CheckoutItem) (string, error)
}

func Total(items []CheckoutItem) int64 {
	var total int64
	for _, it := range items {
		total += it.PriceCents * int64(it.Quantity)
	}
	return total
}
