// Package services defines the business logic of the feedback responder:
// ingesting marketplace feedback, routing it by rating, drafting replies,
// dispatching them, and the operator-facing review operations. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import (
	"context"
	"errors"
	"net"
)

// Service-level errors.
var (
	// ErrItemNotFound indicates that the requested feedback item does not
	// exist.
	ErrItemNotFound = errors.New("feedback item not found")

	// ErrAccountNotFound indicates that the requested marketplace account
	// does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrExampleNotFound indicates that the requested reference example does
	// not exist.
	ErrExampleNotFound = errors.New("reference example not found")

	// ErrInvalidState is returned when an operation is not legal for the
	// item's current lifecycle state (e.g. approving an item that holds no
	// pending draft).
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrConflict is returned when a conditional state transition lost a race
	// against another actor. It is a benign outcome: the other actor already
	// advanced the item, and the caller should treat the operation as done
	// elsewhere.
	ErrConflict = errors.New("item changed concurrently")

	// ErrValidation is returned when request input fails basic validation.
	ErrValidation = errors.New("invalid input")

	// ErrEmptyDraft is returned when a draft text is empty or whitespace-only,
	// whether operator-edited or generated.
	ErrEmptyDraft = errors.New("draft text is empty")

	// ErrDraftTooLong is returned when a draft exceeds the marketplace reply
	// length limit.
	ErrDraftTooLong = errors.New("draft text too long")

	// ErrUnsupportedMarketplace is returned when no gateway is registered for
	// the account's marketplace.
	ErrUnsupportedMarketplace = errors.New("unsupported marketplace")
)

// temporary is satisfied by gateway errors that classify themselves, such as
// the marketplace and generation API errors (HTTP 429 and 5xx responses).
type temporary interface {
	Temporary() bool
}

// IsTransient reports whether err is worth retrying with backoff: rate limits
// and server-side failures reported by a gateway, network-level errors, and
// deadline expiry. Context cancellation is NOT transient; it means the caller
// is shutting down and the current step must be abandoned, not retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
