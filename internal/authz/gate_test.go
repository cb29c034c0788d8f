package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web-shop/internal/apperr"
	"web-shop/internal/auth"
)

func TestAllow_Matrix(t *testing.T) {
	tests := []struct {
		role   auth.Role
		action Action
		scope  Scope
		denied bool
	}{
		{auth.RoleCustomer, ListOrders, ScopeOwn, false},
		{auth.RoleCustomer, GetOrder, ScopeOwn, false},
		{auth.RoleCustomer, MarkSent, 0, true},
		{auth.RoleCustomer, CreateOrder, ScopeOwn, false},

		{auth.RoleStorehouse, ListOrders, ScopeAll, false},
		{auth.RoleStorehouse, GetOrder, ScopeAll, false},
		{auth.RoleStorehouse, MarkSent, ScopeAll, false},
		{auth.RoleStorehouse, CreateOrder, ScopeOwn, false},

		{auth.RoleAdmin, ListOrders, ScopeAll, false},
		{auth.RoleAdmin, GetOrder, ScopeAll, false},
		{auth.RoleAdmin, MarkSent, ScopeAll, false},
		{auth.RoleAdmin, CreateOrder, ScopeOwn, false},
	}
	for _, tt := range tests {
		t.Run(tt.role.String()+"/"+tt.action.String(), func(t *testing.T) {
			scope, err := Allow(tt.role, tt.action)
			if tt.denied {
				require.ErrorIs(t, err, apperr.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scope, scope)
		})
	}
}

func TestAllow_UnknownRoleOrAction(t *testing.T) {
	_, err := Allow(auth.Role(0), ListOrders)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = Allow(auth.RoleAdmin, Action(42))
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestCheckOwner(t *testing.T) {
	me := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}

	require.NoError(t, CheckOwner(ScopeOwn, me, "u1"))
	require.ErrorIs(t, CheckOwner(ScopeOwn, me, "u2"), apperr.ErrUnauthorized)
	require.NoError(t, CheckOwner(ScopeAll, me, "u2"))
}
