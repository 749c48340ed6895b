package inventory

import (
	"context"
	"errors"

	"bookstore-checkout/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Get(ctx context.Context, productID string) (*domain.InventoryEntry, error) {
	const q = `
SELECT asin, quantity, version
FROM product_inventory
WHERE asin = $1
`
	var entry domain.InventoryEntry
	if err := r.pool.QueryRow(ctx, q, productID).Scan(&entry.ProductID, &entry.AvailableQuantity, &entry.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *postgresRepo) TryReserve(ctx context.Context, productID string, qty int, expectedVersion int64) (domain.ReserveOutcome, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.ReserveOutcome{}, err
	}
	defer tx.Rollback(ctx)

	// The quantity guard in the UPDATE predicate is what makes the decrement
	// atomic under concurrency; the version predicate adds the optimistic
	// check when the caller supplied one.
	const q = `
UPDATE product_inventory
SET quantity = quantity - $2,
    version = version + 1
WHERE asin = $1 AND quantity >= $2 AND ($3 = 0 OR version = $3)
RETURNING version
`
	var newVersion int64
	err = tx.QueryRow(ctx, q, productID, qty, expectedVersion).Scan(&newVersion)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.ReserveOutcome{}, err
		}
		// Distinguish conflict from insufficiency off the current row.
		var available int
		var version int64
		err = tx.QueryRow(ctx, `SELECT quantity, version FROM product_inventory WHERE asin = $1`, productID).Scan(&available, &version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ReserveOutcome{}, domain.ErrNotFound
			}
			return domain.ReserveOutcome{}, err
		}
		if expectedVersion != 0 && version != expectedVersion {
			return domain.ReserveOutcome{State: domain.ReservationConflict}, tx.Commit(ctx)
		}
		return domain.ReserveOutcome{State: domain.ReservationInsufficient, Available: available}, tx.Commit(ctx)
	}

	receiptID := uuid.NewString()
	if _, err := tx.Exec(ctx, `
INSERT INTO inventory_reservations (receipt_id, asin, quantity)
VALUES ($1, $2, $3)
`, receiptID, productID, qty); err != nil {
		return domain.ReserveOutcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ReserveOutcome{}, err
	}
	return domain.ReserveOutcome{
		State: domain.ReservationReserved,
		Reservation: domain.Reservation{
			ReceiptID:  receiptID,
			ProductID:  productID,
			Quantity:   qty,
			NewVersion: newVersion,
		},
	}, nil
}

func (r *postgresRepo) Release(ctx context.Context, receiptID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const claim = `
UPDATE inventory_reservations
SET released = TRUE, released_at = now()
WHERE receipt_id = $1 AND NOT released
RETURNING asin, quantity
`
	var productID string
	var qty int
	err = tx.QueryRow(ctx, claim, receiptID).Scan(&productID, &qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown or already-released receipt: nothing to apply.
			return tx.Commit(ctx)
		}
		return err
	}

	if _, err := tx.Exec(ctx, `
UPDATE product_inventory
SET quantity = quantity + $2,
    version = version + 1
WHERE asin = $1
`, productID, qty); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) AddStock(ctx context.Context, productID string, qty int) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO product_inventory (asin, quantity, version)
VALUES ($1, $2, 1)
ON CONFLICT (asin) DO UPDATE
SET quantity = product_inventory.quantity + EXCLUDED.quantity,
    version = product_inventory.version + 1
`, productID, qty)
	return err
}
