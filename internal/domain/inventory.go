package domain

// InventoryEntry is the ledger row for a single product. AvailableQuantity
// never goes negative; Version increments on every successful mutation.
type InventoryEntry struct {
	ProductID         string `json:"productId"`
	AvailableQuantity int    `json:"availableQuantity"`
	Version           int64  `json:"version"`
}

// ReservationState classifies the outcome of a TryReserve call.
type ReservationState string

const (
	ReservationReserved     ReservationState = "RESERVED"
	ReservationInsufficient ReservationState = "INSUFFICIENT"
	ReservationConflict     ReservationState = "CONFLICT"
)

// Reservation is the receipt for a successful decrement. Releases are
// idempotent per receipt.
type Reservation struct {
	ReceiptID  string
	ProductID  string
	Quantity   int
	NewVersion int64
}

// ReserveOutcome is the per-line-item result of TryReserve. Available is
// populated for INSUFFICIENT; Reservation for RESERVED.
type ReserveOutcome struct {
	State       ReservationState
	Reservation Reservation
	Available   int
}
