package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmptyCart indicates a checkout was attempted against a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrConflict indicates an optimistic concurrency check failed; the caller
	// should re-read the current version and retry.
	ErrConflict = errors.New("version conflict")
	// ErrDuplicateConfirmation indicates the generated confirmation number
	// collided with an existing order.
	ErrDuplicateConfirmation = errors.New("duplicate confirmation number")
	// ErrAttemptInFlight indicates another attempt with the same idempotency
	// key has not yet reached a terminal state.
	ErrAttemptInFlight = errors.New("checkout attempt already in flight")
)

// InsufficientError reports that a product did not have enough available
// quantity to satisfy a reservation.
type InsufficientError struct {
	ProductID string
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s: %d available", e.ProductID, e.Available)
}

// Insufficient reports whether err wraps an InsufficientError and, if so,
// returns it.
func Insufficient(err error) (*InsufficientError, bool) {
	var ie *InsufficientError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
