package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"web-shop/internal/apperr"
	"web-shop/shared/pkg/pg"
)

type TokensPG struct{ DB pg.DBTX }

func (r *TokensPG) Lookup(ctx context.Context, token string) (Session, error) {
	var (
		s    Session
		role string
	)
	err := r.DB.QueryRow(ctx, `
		select u.id::text, u.email, u.role, t.issued_at
		from auth_tokens t
		join users u on u.id = t.user_id
		where t.token = $1
	`, token).Scan(&s.Identity.UserID, &s.Identity.Email, &role, &s.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, apperr.NotFound("token")
	}
	if err != nil {
		return Session{}, err
	}
	if s.Identity.Role, err = ParseRole(role); err != nil {
		return Session{}, fmt.Errorf("user %s: %w", s.Identity.UserID, err)
	}
	return s, nil
}

func (r *TokensPG) Save(ctx context.Context, token, userID string, issuedAt time.Time) error {
	_, err := r.DB.Exec(ctx, `
		insert into auth_tokens(token, user_id, issued_at)
		values ($1, $2::uuid, $3)
	`, token, userID, issuedAt)
	return err
}
