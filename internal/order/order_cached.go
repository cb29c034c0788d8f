package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"web-shop/shared/pkg/cache"
)

// Cached is a read-through cache for single orders. Lists always go to the
// store.
//
// Each cached order is tagged with the generation of its id read before the
// store was queried. MarkSent moves the generation after the update commits,
// so a fill that raced with it is never served.
type Cached struct {
	Repo Repo
	KV   cache.KV
	TTL  time.Duration
	Log  zerolog.Logger
}

type cachedOrder struct {
	Gen   string `json:"gen"`
	Order Order  `json:"order"`
}

func orderKey(id string) string { return "order:" + id }
func genKey(id string) string   { return "order:gen:" + id }

func (r *Cached) Create(ctx context.Context, o Order) error {
	return r.Repo.Create(ctx, o)
}

func (r *Cached) generation(ctx context.Context, id string) (string, error) {
	g, err := r.KV.GetString(ctx, genKey(id))
	if errors.Is(err, cache.ErrMiss) {
		return "", nil
	}
	return g, err
}

func (r *Cached) Get(ctx context.Context, id string) (Order, error) {
	gen, err := r.generation(ctx, id)
	if err != nil {
		r.Log.Warn().Err(err).Str("order_id", id).Msg("order cache read failed -> db")
		return r.Repo.Get(ctx, id)
	}

	if s, err := r.KV.GetString(ctx, orderKey(id)); err == nil {
		var c cachedOrder
		if json.Unmarshal([]byte(s), &c) == nil && c.Gen == gen {
			return c.Order, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		r.Log.Warn().Err(err).Str("order_id", id).Msg("order cache read failed -> db")
	}

	o, err := r.Repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if b, err := json.Marshal(cachedOrder{Gen: gen, Order: o}); err == nil {
		_ = r.KV.SetString(ctx, orderKey(id), string(b), r.TTL)
	}
	return o, nil
}

func (r *Cached) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.Repo.ListByUser(ctx, userID)
}

func (r *Cached) ListAll(ctx context.Context) ([]Order, error) {
	return r.Repo.ListAll(ctx)
}

func (r *Cached) MarkSent(ctx context.Context, id, tracking string, rejectResend bool) error {
	if err := r.Repo.MarkSent(ctx, id, tracking, rejectResend); err != nil {
		return err
	}
	err := r.KV.SetString(ctx, genKey(id), uuid.NewString(), 2*r.TTL)
	if err == nil {
		return nil
	}
	if delErr := r.KV.Del(ctx, orderKey(id)); delErr != nil {
		r.Log.Error().Err(err).AnErr("del_err", delErr).Str("order_id", id).Msg("order cache invalidate failed")
		return nil
	}
	r.Log.Warn().Err(err).Str("order_id", id).Msg("order cache generation bump failed, entry dropped")
	return nil
}
