package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore persists admins in the admins table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const adminColumns = `id, name, email, password_hash, created_at`

// FindByEmail implements Store.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (Admin, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
	return scanAdmin(row)
}

// FindByID implements Store.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (Admin, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, admin Admin) (Admin, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO admins (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+adminColumns,
		admin.ID, admin.Name, admin.Email, admin.PasswordHash, admin.CreatedAt)
	created, err := scanAdmin(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Admin{}, ErrEmailTaken
		}
		return Admin{}, err
	}
	return created, nil
}

func scanAdmin(row pgx.Row) (Admin, error) {
	var a Admin
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, ErrAdminNotFound
		}
		return Admin{}, fmt.Errorf("scan admin: %w", err)
	}
	return a, nil
}
