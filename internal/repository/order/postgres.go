package order

import (
	"context"
	"errors"

	"bookstore-checkout/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Append(ctx context.Context, o domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO orders (confirmation_number, user_id, total_cents, status)
VALUES ($1, $2, $3, $4)
`, o.ConfirmationNumber, o.UserID, o.TotalCents, string(o.Status)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateConfirmation
		}
		return err
	}

	for _, line := range o.Lines {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_lines (confirmation_number, asin, title, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6)
`, o.ConfirmationNumber, line.ProductID, line.Title, line.Quantity, line.UnitPriceCents, line.TotalCents); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) Get(ctx context.Context, confirmationNumber string) (*domain.Order, error) {
	const q = `
SELECT confirmation_number, user_id, total_cents, status, created_at
FROM orders
WHERE confirmation_number = $1
`
	var o domain.Order
	var status string
	if err := r.pool.QueryRow(ctx, q, confirmationNumber).Scan(
		&o.ConfirmationNumber,
		&o.UserID,
		&o.TotalCents,
		&status,
		&o.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)

	const linesQ = `
SELECT asin, title, quantity, unit_price_cents, total_cents
FROM order_lines
WHERE confirmation_number = $1
ORDER BY asin ASC
`
	rows, err := r.pool.Query(ctx, linesQ, confirmationNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Title, &line.Quantity, &line.UnitPriceCents, &line.TotalCents); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}
