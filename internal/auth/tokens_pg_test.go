package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web-shop/internal/apperr"
	"web-shop/shared/pkg/cache"
)

func TestTokensPG_Lookup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	issued := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`from auth_tokens t`).
		WithArgs("tok-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "role", "issued_at"}).
			AddRow("user-1", "store@shop.test", "storehouse", issued))

	s, err := (&TokensPG{DB: mock}).Lookup(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-1", Email: "store@shop.test", Role: RoleStorehouse}, s.Identity)
	assert.Equal(t, issued, s.IssuedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokensPG_LookupMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`from auth_tokens t`).WithArgs("tok-x").WillReturnError(pgx.ErrNoRows)

	_, err = (&TokensPG{DB: mock}).Lookup(context.Background(), "tok-x")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTokensCached_ReadThrough(t *testing.T) {
	store := newMemTokens(Identity{UserID: "user-1", Role: RoleCustomer})
	require.NoError(t, store.Save(context.Background(), "tok-1", "user-1", time.Now()))

	c := &TokensCached{Store: store, KV: cache.NewMap(), TTL: time.Minute, Log: zerolog.Nop()}

	for i := 0; i < 3; i++ {
		s, err := c.Lookup(context.Background(), "tok-1")
		require.NoError(t, err)
		assert.Equal(t, RoleCustomer, s.Identity.Role)
	}
	assert.Equal(t, 1, store.hits)

	_, err := c.Lookup(context.Background(), "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// ctxTokens fails lookups whose context is already done.
type ctxTokens struct{ *memTokens }

func (c ctxTokens) Lookup(ctx context.Context, token string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	return c.memTokens.Lookup(ctx, token)
}

func TestTokensCached_SharedLookupOutlivesCaller(t *testing.T) {
	store := newMemTokens(Identity{UserID: "user-1", Role: RoleCustomer})
	require.NoError(t, store.Save(context.Background(), "tok-1", "user-1", time.Now()))
	c := &TokensCached{Store: ctxTokens{store}, KV: cache.NewMap(), TTL: time.Minute, Log: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := c.Lookup(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.Identity.UserID)
}
