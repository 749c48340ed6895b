package inventory

import (
	"context"
	"sync"

	"bookstore-checkout/internal/domain"
	"github.com/google/uuid"
)

type memoryReceipt struct {
	productID string
	quantity  int
	released  bool
}

// memoryRepo mirrors the postgres semantics behind a single mutex. Used in
// tests and local runs without a database.
type memoryRepo struct {
	mu       sync.Mutex
	entries  map[string]*domain.InventoryEntry
	receipts map[string]*memoryReceipt
}

func NewMemory() Repository {
	return &memoryRepo{
		entries:  make(map[string]*domain.InventoryEntry),
		receipts: make(map[string]*memoryReceipt),
	}
}

func (r *memoryRepo) Get(_ context.Context, productID string) (*domain.InventoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *memoryRepo) TryReserve(_ context.Context, productID string, qty int, expectedVersion int64) (domain.ReserveOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[productID]
	if !ok {
		return domain.ReserveOutcome{}, domain.ErrNotFound
	}
	if expectedVersion != 0 && entry.Version != expectedVersion {
		return domain.ReserveOutcome{State: domain.ReservationConflict}, nil
	}
	if entry.AvailableQuantity < qty {
		return domain.ReserveOutcome{State: domain.ReservationInsufficient, Available: entry.AvailableQuantity}, nil
	}

	entry.AvailableQuantity -= qty
	entry.Version++
	receiptID := uuid.NewString()
	r.receipts[receiptID] = &memoryReceipt{productID: productID, quantity: qty}

	return domain.ReserveOutcome{
		State: domain.ReservationReserved,
		Reservation: domain.Reservation{
			ReceiptID:  receiptID,
			ProductID:  productID,
			Quantity:   qty,
			NewVersion: entry.Version,
		},
	}, nil
}

func (r *memoryRepo) Release(_ context.Context, receiptID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	receipt, ok := r.receipts[receiptID]
	if !ok || receipt.released {
		return nil
	}
	receipt.released = true
	if entry, ok := r.entries[receipt.productID]; ok {
		entry.AvailableQuantity += receipt.quantity
		entry.Version++
	}
	return nil
}

func (r *memoryRepo) AddStock(_ context.Context, productID string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[productID]
	if !ok {
		r.entries[productID] = &domain.InventoryEntry{ProductID: productID, AvailableQuantity: qty, Version: 1}
		return nil
	}
	entry.AvailableQuantity += qty
	entry.Version++
	return nil
}
