package events

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore appends events to the domain_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs an EventStore backed by a pgx connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InsertDomainEvent implements EventStore.
func (s *PostgresStore) InsertDomainEvent(ctx context.Context, ev Event) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)`, ev.ID, ev.Topic, ev.AggregateID, []byte(ev.Payload), ev.OccurredAt)
	return err
}
