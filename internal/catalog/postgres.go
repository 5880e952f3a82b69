package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists products in the products table. Listing order
// follows insertion order through the seq column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Store backed by a pgx connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const productColumns = `id, name, category, price, tax_rate, image, status, region_id, created_at`

func (s *PostgresStore) List(ctx context.Context, regionID string) ([]Product, error) {
	if regionID == "" {
		return s.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
	}
	return s.query(ctx, `SELECT `+productColumns+` FROM products WHERE region_id = $1 ORDER BY seq`, regionID)
}

func (s *PostgresStore) ListActive(ctx context.Context, regionID string) ([]Product, error) {
	return s.query(ctx, `SELECT `+productColumns+` FROM products WHERE region_id = $1 AND status = 'active' ORDER BY seq`, regionID)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product %s: %w", id, err)
	}
	return p, nil
}

// Create inserts p. An existing row with the same id is overwritten so the
// seeder can be re-run.
func (s *PostgresStore) Create(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO products (id, name, category, price, tax_rate, image, status, region_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	category = EXCLUDED.category,
	price = EXCLUDED.price,
	tax_rate = EXCLUDED.tax_rate,
	image = EXCLUDED.image,
	status = EXCLUDED.status,
	region_id = EXCLUDED.region_id
RETURNING `+productColumns,
		p.ID, p.Name, p.Category, p.Price, p.TaxRate, p.Image, string(p.Status), p.RegionID, p.CreatedAt)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: insert product: %w", err)
	}
	return created, nil
}

// Update merges the patch in a single statement; concurrent updates resolve
// as last write wins per column.
func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	row := s.pool.QueryRow(ctx, `UPDATE products SET
	name = COALESCE($2, name),
	category = COALESCE($3, category),
	price = COALESCE($4, price),
	tax_rate = COALESCE($5, tax_rate),
	image = COALESCE($6, image),
	status = COALESCE($7, status),
	region_id = COALESCE($8, region_id)
WHERE id = $1
RETURNING `+productColumns,
		id, patch.Name, patch.Category, patch.Price, patch.TaxRate, patch.Image, status, patch.RegionID)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: update product %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("catalog: delete product %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p      Product
		status string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.TaxRate, &p.Image, &status, &p.RegionID, &p.CreatedAt); err != nil {
		return Product{}, err
	}
	p.Status = Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
