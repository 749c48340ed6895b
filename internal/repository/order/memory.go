package order

import (
	"context"
	"sync"

	"bookstore-checkout/internal/domain"
)

type memoryRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func NewMemory() Repository {
	return &memoryRepo{orders: make(map[string]domain.Order)}
}

func (r *memoryRepo) Append(_ context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[o.ConfirmationNumber]; exists {
		return domain.ErrDuplicateConfirmation
	}
	r.orders[o.ConfirmationNumber] = o
	return nil
}

func (r *memoryRepo) Get(_ context.Context, confirmationNumber string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[confirmationNumber]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := o
	copied.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &copied, nil
}
