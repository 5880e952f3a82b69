package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/kasir-api/internal/pricing"
)

// PostgresStore persists the ledger in the transactions table. Amounts are
// NUMERIC columns and cross the driver boundary as text to stay exact.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Store backed by a pgx connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const transactionColumns = `id, items, subtotal::text, tax::text, total::text, payment_method, customer_name, customer_email, region_id, created_at`

func (s *PostgresStore) Append(ctx context.Context, tx Transaction) (Transaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Transaction{}, fmt.Errorf("ledger: generate id: %w", err)
	}
	items, err := json.Marshal(tx.Items)
	if err != nil {
		return Transaction{}, fmt.Errorf("ledger: encode items: %w", err)
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO transactions (id, items, subtotal, tax, total, payment_method, customer_name, customer_email, region_id, created_at)
VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8, $9, $10)
RETURNING `+transactionColumns,
		id.String(), items, tx.Subtotal.String(), tx.Tax.String(), tx.Total.String(),
		string(tx.PaymentMethod), tx.CustomerName, tx.CustomerEmail, tx.RegionID, time.Now().UTC())
	stored, err := scanTransaction(row)
	if err != nil {
		return Transaction{}, fmt.Errorf("ledger: append: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) List(ctx context.Context, regionID string) ([]Transaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if regionID == "" {
		rows, err = s.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE region_id = $1 ORDER BY seq`, regionID)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	txs := make([]Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context, regionID string) (Stats, error) {
	var (
		revenue, tax string
		count        int
	)
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total), 0)::text, COUNT(*), COALESCE(SUM(tax), 0)::text
FROM transactions WHERE region_id = $1`, regionID).Scan(&revenue, &count, &tax)
	if err != nil {
		return Stats{}, fmt.Errorf("ledger: stats: %w", err)
	}
	stats := Stats{TotalTransactions: count}
	if stats.TotalRevenue, err = pricing.ParseMoney(revenue); err != nil {
		return Stats{}, err
	}
	if stats.TotalTax, err = pricing.ParseMoney(tax); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx                   Transaction
		items                []byte
		subtotal, tax, total string
		method, name, email  string
	)
	if err := row.Scan(&tx.ID, &items, &subtotal, &tax, &total, &method, &name, &email, &tx.RegionID, &tx.CreatedAt); err != nil {
		return Transaction{}, err
	}
	if err := json.Unmarshal(items, &tx.Items); err != nil {
		return Transaction{}, fmt.Errorf("decode items: %w", err)
	}
	var err error
	if tx.Subtotal, err = pricing.ParseMoney(subtotal); err != nil {
		return Transaction{}, err
	}
	if tx.Tax, err = pricing.ParseMoney(tax); err != nil {
		return Transaction{}, err
	}
	if tx.Total, err = pricing.ParseMoney(total); err != nil {
		return Transaction{}, err
	}
	tx.PaymentMethod = PaymentMethod(method)
	tx.CustomerName = name
	tx.CustomerEmail = email
	tx.CreatedAt = tx.CreatedAt.UTC()
	return tx, nil
}
