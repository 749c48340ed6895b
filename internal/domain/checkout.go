package domain

import "time"

// CheckoutStatus is the caller-visible outcome of a checkout attempt. There
// is no partial-success state: an attempt is all-or-nothing.
type CheckoutStatus string

const (
	CheckoutCommitted CheckoutStatus = "COMMITTED"
	CheckoutFailed    CheckoutStatus = "FAILED"
	// CheckoutRetryable means no durable effect is recorded for this attempt;
	// resubmitting with the same idempotency key is safe.
	CheckoutRetryable CheckoutStatus = "RETRYABLE"
)

// FailureReason classifies terminal and retryable checkout outcomes.
type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonEmptyCart             FailureReason = "EmptyCart"
	ReasonProductNotFound       FailureReason = "ProductNotFound"
	ReasonInsufficientInventory FailureReason = "InsufficientInventory"
	ReasonConflictBudget        FailureReason = "ConflictRetriesExhausted"
	ReasonTimeout               FailureReason = "Timeout"
	ReasonCommitIndeterminate   FailureReason = "CommitIndeterminate"
	ReasonAttemptInFlight       FailureReason = "AttemptInFlight"
)

// CheckoutResult is what the orchestrator reports back to the transport
// layer for a single attempt.
type CheckoutResult struct {
	Status             CheckoutStatus
	ConfirmationNumber string
	Reason             FailureReason
	// FailedProductID identifies the product for InsufficientInventory.
	FailedProductID string
	Order           *Order
}

// IdempotencyStatus tracks an idempotency record through an attempt.
type IdempotencyStatus string

const (
	IdempotencyInProgress IdempotencyStatus = "IN_PROGRESS"
	IdempotencyCommitted  IdempotencyStatus = "COMMITTED"
	IdempotencyFailed     IdempotencyStatus = "FAILED"
)

// IdempotencyRecord maps an idempotency key to the terminal outcome of a
// checkout attempt. Records are evicted after their retention window.
type IdempotencyRecord struct {
	Key                string
	Status             IdempotencyStatus
	ConfirmationNumber string
	Reason             FailureReason
	FailedProductID    string
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

// Terminal reports whether the record carries a finished outcome.
func (r IdempotencyRecord) Terminal() bool {
	return r.Status == IdempotencyCommitted || r.Status == IdempotencyFailed
}
