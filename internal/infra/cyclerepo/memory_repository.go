package cyclerepo

import (
	"context"
	"sync"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

// MemoryRepository serves records loaded from the CSV dataset.
type MemoryRepository struct {
	mu     sync.RWMutex
	all    []cycle.Record
	byUser map[int64][]cycle.Record
}

// NewMemoryRepository indexes records by user.
func NewMemoryRepository(records []cycle.Record) *MemoryRepository {
	r := &MemoryRepository{}
	r.Replace(records)
	return r
}

// Replace swaps the dataset atomically.
func (r *MemoryRepository) Replace(records []cycle.Record) {
	byUser := make(map[int64][]cycle.Record)
	for _, rec := range records {
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}
	all := make([]cycle.Record, len(records))
	copy(all, records)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = all
	r.byUser = byUser
}

// ListByUser implements cycle.RecordRepository.
func (r *MemoryRepository) ListByUser(_ context.Context, userID int64) ([]cycle.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.byUser[userID]
	out := make([]cycle.Record, len(src))
	copy(out, src)
	return out, nil
}

// ListAll implements cycle.RecordRepository.
func (r *MemoryRepository) ListAll(_ context.Context) ([]cycle.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]cycle.Record, len(r.all))
	copy(out, r.all)
	return out, nil
}

var _ cycle.RecordRepository = (*MemoryRepository)(nil)
