package order

import (
	"context"

	"bookstore-checkout/internal/domain"
)

// Repository is the append-only order ledger: source of truth for whether a
// checkout succeeded.
type Repository interface {
	// Append persists a terminal order. Returns ErrDuplicateConfirmation if
	// the confirmation number already exists; the caller regenerates and
	// retries, never reusing a partially-written record.
	Append(ctx context.Context, o domain.Order) error
	// Get is read-only and idempotent.
	Get(ctx context.Context, confirmationNumber string) (*domain.Order, error)
}
