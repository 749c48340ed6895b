package idempotency

import (
	"context"
	"time"

	"bookstore-checkout/internal/domain"
)

// Repository guards checkout attempts against duplicate submission. A key is
// claimed at the start of an attempt and completed with the terminal outcome;
// re-submitting the same key returns the recorded outcome without new work.
type Repository interface {
	// Claim registers an in-progress record for key if none exists. When a
	// record already exists it is returned with claimed=false: terminal
	// records carry the prior outcome, in-progress records mean another
	// attempt is still running.
	Claim(ctx context.Context, key string, retention time.Duration) (rec *domain.IdempotencyRecord, claimed bool, err error)
	// Complete marks the claim terminal. The record becomes immutable.
	Complete(ctx context.Context, rec domain.IdempotencyRecord) error
	// Abandon removes an in-progress claim whose attempt ended without a
	// terminal outcome, so the caller can safely resubmit.
	Abandon(ctx context.Context, key string) error
	// PurgeExpired evicts records past their retention window.
	PurgeExpired(ctx context.Context) (int64, error)
}
