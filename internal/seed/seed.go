package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type stockSeed struct {
	ASIN     string
	Quantity int
}

// Apply inserts inventory stock for manual testing. It is idempotent: a row
// that already exists keeps its current quantity.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	stock := []stockSeed{
		{ASIN: "B000FI73MA", Quantity: 25},
		{ASIN: "B00ZV9RDKK", Quantity: 10},
		{ASIN: "B01CRF3EO0", Quantity: 5},
		{ASIN: "B078J8PXGG", Quantity: 1},
	}

	for _, s := range stock {
		if err := ensureStock(ctx, pool, s); err != nil {
			return fmt.Errorf("ensure stock %s: %w", s.ASIN, err)
		}
	}

	return nil
}

func ensureStock(ctx context.Context, pool *pgxpool.Pool, s stockSeed) error {
	const q = `
INSERT INTO product_inventory (asin, quantity, version)
VALUES ($1, $2, 1)
ON CONFLICT (asin) DO NOTHING
`
	_, err := pool.Exec(ctx, q, s.ASIN, s.Quantity)
	return err
}
