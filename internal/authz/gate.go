// Package authz decides which order operations a resolved identity may run.
package authz

import (
	"fmt"

	"web-shop/internal/apperr"
	"web-shop/internal/auth"
)

type Action uint8

const (
	ListOrders Action = iota + 1
	GetOrder
	MarkSent
	CreateOrder
)

func (a Action) String() string {
	switch a {
	case ListOrders:
		return "list_orders"
	case GetOrder:
		return "get_order"
	case MarkSent:
		return "mark_sent"
	case CreateOrder:
		return "create_order"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Scope tells a permitted caller how far the action reaches.
type Scope uint8

const (
	ScopeOwn Scope = iota + 1
	ScopeAll
)

// Allow returns the scope the role holds for the action, or
// apperr.ErrUnauthorized. Ownership for ScopeOwn is checked by the caller
// with CheckOwner once the target is loaded.
func Allow(role auth.Role, action Action) (Scope, error) {
	switch role {
	case auth.RoleCustomer:
		switch action {
		case ListOrders, GetOrder, CreateOrder:
			return ScopeOwn, nil
		case MarkSent:
			return 0, apperr.Unauthorized("customer cannot %s", action)
		}
	case auth.RoleStorehouse, auth.RoleAdmin:
		switch action {
		case ListOrders, GetOrder, MarkSent:
			return ScopeAll, nil
		case CreateOrder:
			return ScopeOwn, nil
		}
	}
	return 0, apperr.Unauthorized("%s cannot %s", role, action)
}

// CheckOwner enforces ScopeOwn against the owner of a loaded resource.
func CheckOwner(scope Scope, id auth.Identity, ownerID string) error {
	if scope == ScopeAll || id.UserID == ownerID {
		return nil
	}
	return apperr.Unauthorized("order belongs to another user")
}
