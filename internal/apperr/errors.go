// Package apperr defines the error kinds shared by the checkout pipeline.
// Callers wrap a kind with context via fmt.Errorf("...: %w", ErrX) and
// classify with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrUnauthorized   = errors.New("not authorized")
	ErrNotFound       = errors.New("not found")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrPaymentGateway = errors.New("payment gateway error")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// Code is the machine-readable error code carried in failure responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuthentication):
		return "unauthenticated"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrPaymentGateway):
		return "payment_gateway"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its status. Unauthorized shares 401 with
// Authentication; the two stay distinct through Code.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "validation":
		return http.StatusBadRequest
	case "unauthenticated", "unauthorized":
		return http.StatusUnauthorized
	case "not_found":
		return http.StatusNotFound
	case "empty_cart":
		return http.StatusConflict
	case "payment_gateway":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Permanent reports whether retrying the same input can never succeed.
func Permanent(err error) bool {
	switch Code(err) {
	case "internal", "payment_gateway":
		return false
	default:
		return true
	}
}
