package idempotency

import (
	"context"
	"sync"
	"time"

	"bookstore-checkout/internal/domain"
)

type memoryRepo struct {
	mu      sync.Mutex
	records map[string]domain.IdempotencyRecord
}

func NewMemory() Repository {
	return &memoryRepo{records: make(map[string]domain.IdempotencyRecord)}
}

func (r *memoryRepo) Claim(_ context.Context, key string, retention time.Duration) (*domain.IdempotencyRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if rec, ok := r.records[key]; ok && rec.ExpiresAt.After(now) {
		copied := rec
		return &copied, false, nil
	}
	r.records[key] = domain.IdempotencyRecord{
		Key:       key,
		Status:    domain.IdempotencyInProgress,
		CreatedAt: now,
		ExpiresAt: now.Add(retention),
	}
	return nil, true, nil
}

func (r *memoryRepo) Complete(_ context.Context, rec domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[rec.Key]
	if !ok || existing.Status != domain.IdempotencyInProgress {
		return domain.ErrNotFound
	}
	rec.CreatedAt = existing.CreatedAt
	rec.ExpiresAt = existing.ExpiresAt
	r.records[rec.Key] = rec
	return nil
}

func (r *memoryRepo) Abandon(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[key]; ok && rec.Status == domain.IdempotencyInProgress {
		delete(r.records, key)
	}
	return nil
}

func (r *memoryRepo) PurgeExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var purged int64
	for key, rec := range r.records {
		if rec.ExpiresAt.Before(now) {
			delete(r.records, key)
			purged++
		}
	}
	return purged, nil
}
