package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps transactions in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	txs []Transaction
	now func() time.Time
}

// NewMemoryStore constructs an empty ledger. now may be nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

func (s *MemoryStore) Append(_ context.Context, tx Transaction) (Transaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Transaction{}, fmt.Errorf("ledger: generate id: %w", err)
	}
	tx = cloneTransaction(tx)
	tx.ID = id.String()
	tx.CreatedAt = s.now().UTC()

	s.mu.Lock()
	s.txs = append(s.txs, tx)
	s.mu.Unlock()
	return cloneTransaction(tx), nil
}

func (s *MemoryStore) List(_ context.Context, regionID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if regionID == "" || tx.RegionID == regionID {
			out = append(out, cloneTransaction(tx))
		}
	}
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context, regionID string) (Stats, error) {
	txs, err := s.List(ctx, regionID)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(txs), nil
}
