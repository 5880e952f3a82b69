package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists entries in the audit_logs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Store backed by a pgx connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, e Entry) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO audit_logs (id, actor_kind, actor_id, action, resource_type, resource_id, method, path, route, status, ip, user_agent, request_id, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, string(e.ActorKind), e.ActorID, e.Action, e.ResourceType, e.ResourceID,
		e.Method, e.Path, e.Route, e.Status, e.IP, e.UserAgent, e.RequestID, metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, actor_kind, actor_id, action, resource_type, resource_id, method, path, route, status, ip, user_agent, request_id, metadata, created_at
FROM audit_logs ORDER BY seq DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e        Entry
			kind     string
			metadata []byte
		)
		if err := row.Scan(&e.ID, &kind, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.Method, &e.Path, &e.Route, &e.Status, &e.IP, &e.UserAgent, &e.RequestID, &metadata, &e.CreatedAt); err != nil {
			return Entry{}, err
		}
		e.ActorKind = ActorKind(kind)
		if len(metadata) > 0 {
			e.Metadata = metadata
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: scan: %w", err)
	}
	return entries, nil
}
