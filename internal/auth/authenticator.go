package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"web-shop/internal/apperr"
)

// Session is a stored token together with the identity it belongs to.
type Session struct {
	Identity Identity  `json:"identity"`
	IssuedAt time.Time `json:"issued_at"`
}

type TokenStore interface {
	// Lookup returns apperr.ErrNotFound for unknown tokens.
	Lookup(ctx context.Context, token string) (Session, error)
	Save(ctx context.Context, token, userID string, issuedAt time.Time) error
}

type Authenticator struct {
	Tokens TokenStore
	// TTL of zero disables expiry.
	TTL time.Duration
	Now func() time.Time
}

func (a *Authenticator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Resolve maps a bearer token to an identity. Every failure (missing,
// malformed, unknown, expired) is ErrAuthentication.
func (a *Authenticator) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", apperr.ErrAuthentication)
	}
	if _, err := uuid.Parse(token); err != nil {
		return Identity{}, fmt.Errorf("%w: malformed token", apperr.ErrAuthentication)
	}
	s, err := a.Tokens.Lookup(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return Identity{}, fmt.Errorf("%w: unknown token", apperr.ErrAuthentication)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup token: %w", err)
	}
	if a.TTL > 0 && a.now().After(s.IssuedAt.Add(a.TTL)) {
		return Identity{}, fmt.Errorf("%w: token expired", apperr.ErrAuthentication)
	}
	return s.Identity, nil
}

func (a *Authenticator) Issue(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", apperr.Validation("user id is empty")
	}
	token := uuid.NewString()
	if err := a.Tokens.Save(ctx, token, userID, a.now().UTC()); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return token, nil
}
