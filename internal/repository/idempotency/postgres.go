package idempotency

import (
	"context"
	"errors"
	"time"

	"bookstore-checkout/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Claim(ctx context.Context, key string, retention time.Duration) (*domain.IdempotencyRecord, bool, error) {
	expiresAt := time.Now().UTC().Add(retention)

	// The conditional upsert makes the claim race-safe: exactly one of two
	// concurrent submissions with the same key wins the row. An expired row
	// is reclaimed in place without waiting for the sweeper.
	cmd, err := r.pool.Exec(ctx, `
INSERT INTO checkout_idempotency (key, status, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE
SET status = EXCLUDED.status,
    confirmation_number = '',
    reason = '',
    failed_product_id = '',
    created_at = now(),
    expires_at = EXCLUDED.expires_at
WHERE checkout_idempotency.expires_at < now()
`, key, string(domain.IdempotencyInProgress), expiresAt)
	if err != nil {
		return nil, false, err
	}
	if cmd.RowsAffected() == 1 {
		return nil, true, nil
	}

	rec, err := r.get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Row evicted between insert attempt and read; report it as in
			// flight so the caller resubmits.
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec, false, nil
}

func (r *postgresRepo) Complete(ctx context.Context, rec domain.IdempotencyRecord) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE checkout_idempotency
SET status = $2,
    confirmation_number = $3,
    reason = $4,
    failed_product_id = $5
WHERE key = $1 AND status = $6
`, rec.Key, string(rec.Status), rec.ConfirmationNumber, string(rec.Reason), rec.FailedProductID, string(domain.IdempotencyInProgress))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Abandon(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `
DELETE FROM checkout_idempotency
WHERE key = $1 AND status = $2
`, key, string(domain.IdempotencyInProgress))
	return err
}

func (r *postgresRepo) PurgeExpired(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM checkout_idempotency
WHERE expires_at < now()
`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	const q = `
SELECT key, status, confirmation_number, reason, failed_product_id, created_at, expires_at
FROM checkout_idempotency
WHERE key = $1 AND expires_at >= now()
`
	var rec domain.IdempotencyRecord
	var status, reason string
	if err := r.pool.QueryRow(ctx, q, key).Scan(
		&rec.Key,
		&status,
		&rec.ConfirmationNumber,
		&reason,
		&rec.FailedProductID,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	rec.Status = domain.IdempotencyStatus(status)
	rec.Reason = domain.FailureReason(reason)
	return &rec, nil
}
