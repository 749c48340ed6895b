package inventory

import (
	"context"

	"bookstore-checkout/internal/domain"
)

// Repository owns per-product available quantity. TryReserve is the sole
// serialization point per product: concurrent reservations against the same
// product never jointly exceed its available quantity.
type Repository interface {
	Get(ctx context.Context, productID string) (*domain.InventoryEntry, error)
	// TryReserve atomically decrements quantity if at least qty is available
	// and, when expectedVersion is non-zero, the entry's version matches.
	// A version mismatch yields a CONFLICT outcome so the caller can re-read
	// and retry instead of holding a lock across network round-trips.
	TryReserve(ctx context.Context, productID string, qty int, expectedVersion int64) (domain.ReserveOutcome, error)
	// Release returns a previously reserved quantity. Idempotent per
	// receipt: releasing the same receipt twice applies the return once.
	Release(ctx context.Context, receiptID string) error
	// AddStock increases available quantity, creating the entry if absent.
	AddStock(ctx context.Context, productID string, qty int) error
}
