package order

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"web-shop/internal/apperr"
	"web-shop/internal/auth"
	"web-shop/internal/authz"
	"web-shop/shared/pkg/metrics"
)

// Service runs order reads and the send transition on behalf of an
// authenticated identity. Authorization is decided before any input is
// validated or the store is touched.
type Service struct {
	Repo         Repo
	RejectResend bool
	Log          zerolog.Logger
}

func (s *Service) Get(ctx context.Context, who auth.Identity, id string) (Order, error) {
	scope, err := authz.Allow(who.Role, authz.GetOrder)
	if err != nil {
		return Order{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, apperr.NotFound("order %s", id)
	}
	o, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := authz.CheckOwner(scope, who, o.UserID); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, who auth.Identity) ([]Order, error) {
	scope, err := authz.Allow(who.Role, authz.ListOrders)
	if err != nil {
		return nil, err
	}
	if scope == authz.ScopeAll {
		return s.Repo.ListAll(ctx)
	}
	return s.Repo.ListByUser(ctx, who.UserID)
}

func (s *Service) MarkSent(ctx context.Context, who auth.Identity, id, tracking string) (Order, error) {
	if _, err := authz.Allow(who.Role, authz.MarkSent); err != nil {
		return Order{}, err
	}
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		return Order{}, apperr.Validation("tracking number is empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, apperr.NotFound("order %s", id)
	}
	o, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := o.MarkSent(tracking, s.RejectResend); err != nil {
		return Order{}, err
	}
	// the store re-checks the guard in the same statement that writes
	if err := s.Repo.MarkSent(ctx, id, tracking, s.RejectResend); err != nil {
		return Order{}, err
	}
	metrics.OrdersSentTotal.Inc()
	s.Log.Info().
		Str("order_id", id).
		Str("tracking_number", tracking).
		Str("by", who.UserID).
		Msg("order sent")
	return o, nil
}
