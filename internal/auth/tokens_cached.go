package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"web-shop/shared/pkg/cache"
)

// TokensCached is a read-through cache in front of the token table. Tokens
// are never mutated after issue, so entries only need a TTL.
type TokensCached struct {
	Store TokenStore
	KV    cache.KV
	TTL   time.Duration
	Log   zerolog.Logger

	group singleflight.Group
}

const lookupTimeout = 5 * time.Second

func tokenKey(token string) string { return "token:" + token }

func (r *TokensCached) Lookup(ctx context.Context, token string) (Session, error) {
	if raw, err := r.KV.GetString(ctx, tokenKey(token)); err == nil {
		var s Session
		if json.Unmarshal([]byte(raw), &s) == nil {
			return s, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		r.Log.Warn().Err(err).Msg("token cache read failed -> db")
	}

	// concurrent misses for one token share a single store lookup, which
	// must not fail for all of them when the first caller goes away
	v, err, _ := r.group.Do(token, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		s, err := r.Store.Lookup(ctx, token)
		if err != nil {
			return Session{}, err
		}
		if b, err := json.Marshal(s); err == nil {
			_ = r.KV.SetString(ctx, tokenKey(token), string(b), r.TTL)
		}
		return s, nil
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

func (r *TokensCached) Save(ctx context.Context, token, userID string, issuedAt time.Time) error {
	return r.Store.Save(ctx, token, userID, issuedAt)
}
