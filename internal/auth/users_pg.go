package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"web-shop/internal/apperr"
	"web-shop/shared/pkg/pg"
)

// UsersPG reads the user table owned by the account service.
type UsersPG struct{ DB pg.DBTX }

func (r *UsersPG) Get(ctx context.Context, userID string) (Identity, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return Identity{}, apperr.NotFound("user %s", userID)
	}
	return r.scan(r.DB.QueryRow(ctx, `select id::text, email, role from users where id = $1`, userID), userID)
}

func (r *UsersPG) GetByEmail(ctx context.Context, email string) (Identity, error) {
	return r.scan(r.DB.QueryRow(ctx, `select id::text, email, role from users where email = $1`, email), email)
}

func (r *UsersPG) scan(row pgx.Row, ref string) (Identity, error) {
	var (
		id   Identity
		role string
	)
	err := row.Scan(&id.UserID, &id.Email, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, apperr.NotFound("user %s", ref)
	}
	if err != nil {
		return Identity{}, err
	}
	if id.Role, err = ParseRole(role); err != nil {
		return Identity{}, fmt.Errorf("user %s: %w", id.UserID, err)
	}
	return id, nil
}
