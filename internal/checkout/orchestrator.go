// Package checkout turns carts into payment sessions and, once a payment is
// confirmed, into orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"web-shop/internal/apperr"
	"web-shop/internal/order"
	"web-shop/internal/payment"
	"web-shop/shared/pkg/metrics"
	"web-shop/shared/pkg/models"
)

type Orchestrator struct {
	Gateway payment.Gateway
	UoW     UnitOfWork
	Log     zerolog.Logger

	// Timeout bounds one gateway call. MaxAttempts caps calls per
	// StartCheckout; BackoffMax caps the wait between them.
	Timeout     time.Duration
	MaxAttempts int
	BackoffMax  time.Duration

	locks userLocks
}

// StartCheckout opens a payment session for caller-supplied items. Nothing
// local is written, so a failed call needs no cleanup.
func (o *Orchestrator) StartCheckout(ctx context.Context, items []payment.CheckoutItem) (string, error) {
	if len(items) == 0 {
		return "", apperr.Validation("no checkout items")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return "", apperr.Validation("product %d: quantity must be positive", it.ProductID)
		}
		if it.PriceCents < 0 {
			return "", apperr.Validation("product %d: negative price", it.ProductID)
		}
		if it.UserID == "" || it.UserID != items[0].UserID {
			return "", apperr.Validation("checkout items must belong to one user")
		}
	}

	attempts := max(o.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		sessionID, err := o.callGateway(ctx, items)
		if err == nil {
			o.Log.Info().
				Str("session_id", sessionID).
				Str("user_id", items[0].UserID).
				Int("attempt", attempt).
				Msg("payment session created")
			return sessionID, nil
		}
		lastErr = err
		final := attempt == attempts || ctx.Err() != nil || errors.Is(err, payment.ErrRejected)
		metrics.PaymentGatewayErrorsTotal.WithLabelValues(fmt.Sprint(final)).Inc()
		o.Log.Warn().Err(err).Int("attempt", attempt).Bool("final", final).Msg("payment gateway call failed")
		if final {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(backoff(attempt, o.BackoffMax)):
		}
	}
	return "", fmt.Errorf("%w: %v", apperr.ErrPaymentGateway, lastErr)
}

// callGateway returns when the timeout fires even if the gateway ignores ctx.
func (o *Orchestrator) callGateway(ctx context.Context, items []payment.CheckoutItem) (string, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := o.Gateway.CreateSession(ctx, items)
		done <- result{id, err}
	}()
	select {
	case r := <-done:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func backoff(attempt int, limit time.Duration) time.Duration {
	d := 100 * time.Millisecond << (attempt - 1)
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// CompleteCheckout materializes the order paid by sessionID from the user's
// current cart. Repeated confirmations of one session return the order the
// first one created, with duplicate set.
func (o *Orchestrator) CompleteCheckout(ctx context.Context, userID, sessionID string) (ord order.Order, duplicate bool, err error) {
	if userID == "" || sessionID == "" {
		return order.Order{}, false, apperr.Validation("user id and session id are required")
	}

	unlock := o.locks.Lock(userID)
	defer unlock()

	err = o.UoW.Do(ctx, userID, func(ctx context.Context, s Stores) error {
		claim, err := s.Sessions.Claim(ctx, sessionID, userID)
		if err != nil {
			return fmt.Errorf("claim session: %w", err)
		}
		if !claim.New {
			if claim.UserID != userID {
				return apperr.Validation("session %s belongs to another user", sessionID)
			}
			if claim.OrderID == "" {
				return fmt.Errorf("session %s claimed without an order", sessionID)
			}
			duplicate = true
			ord, err = s.Orders.Get(ctx, claim.OrderID)
			return err
		}

		ord, err = materialize(ctx, s, userID, sessionID)
		return err
	})

	log := o.Log.With().Str("user_id", userID).Str("session_id", sessionID).Logger()
	switch {
	case errors.Is(err, apperr.ErrEmptyCart):
		metrics.CheckoutEmptyCartTotal.Inc()
		log.Error().Err(err).Msg("payment confirmed for empty cart")
		return order.Order{}, false, err
	case err != nil:
		return order.Order{}, false, err
	case duplicate:
		metrics.CheckoutDuplicateConfirmationsTotal.Inc()
		log.Info().Str("order_id", ord.ID).Msg("duplicate confirmation -> existing order")
	default:
		metrics.OrdersCreatedTotal.Inc()
		log.Info().Str("order_id", ord.ID).Int64("total_cents", ord.TotalCents).Msg("order created")
	}
	return ord, duplicate, nil
}

func materialize(ctx context.Context, s Stores, userID, sessionID string) (order.Order, error) {
	entries, err := s.Carts.ListByUser(ctx, userID)
	if err != nil {
		return order.Order{}, fmt.Errorf("read cart: %w", err)
	}
	if len(entries) == 0 {
		return order.Order{}, fmt.Errorf("%w: user %s", apperr.ErrEmptyCart, userID)
	}

	items := make([]order.Item, 0, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
		p, err := s.Catalog.Resolve(ctx, e.ProductID)
		if err != nil {
			return order.Order{}, fmt.Errorf("cart item %d: %w", e.ID, err)
		}
		items = append(items, order.Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    e.Quantity,
			PriceCents:  p.PriceCents,
		})
	}

	ord, err := order.New(userID, sessionID, items)
	if err != nil {
		return order.Order{}, err
	}
	if err := s.Orders.Create(ctx, ord); err != nil {
		return order.Order{}, fmt.Errorf("create order: %w", err)
	}
	if err := s.Carts.Clear(ctx, userID, ids); err != nil {
		return order.Order{}, fmt.Errorf("clear cart: %w", err)
	}
	if err := s.Sessions.Link(ctx, sessionID, ord.ID); err != nil {
		return order.Order{}, fmt.Errorf("link session: %w", err)
	}

	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return order.Order{}, fmt.Errorf("load user: %w", err)
	}
	lines := make([]models.OrderItemPayload, 0, len(ord.Items))
	for _, it := range ord.Items {
		lines = append(lines, models.OrderItemPayload{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Qty:         it.Quantity,
			PriceCents:  it.PriceCents,
		})
	}
	evt := models.NewEvent(models.TypeOrderCreated, ord.ID, models.OrderCreatedPayload{
		UserID:     userID,
		Email:      user.Email,
		SessionID:  sessionID,
		TotalCents: ord.TotalCents,
		Items:      lines,
	})
	if err := s.Events.Enqueue(ctx, ord.ID, evt); err != nil {
		return order.Order{}, fmt.Errorf("enqueue %s: %w", evt.Type, err)
	}
	return ord, nil
}
