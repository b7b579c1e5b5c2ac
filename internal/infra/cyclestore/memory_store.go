package cyclestore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/cyclegpt/internal/domain/chat"
	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e entry[T]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}

// MemoryStore caches predictions and chat answers in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	predictions map[int64]entry[cycle.Prediction]
	answers     map[string]entry[chat.AnswerRecord]
	now         func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		predictions: make(map[int64]entry[cycle.Prediction]),
		answers:     make(map[string]entry[chat.AnswerRecord]),
		now:         time.Now,
	}
}

// GetPrediction implements cycle.PredictionCache.
func (s *MemoryStore) GetPrediction(_ context.Context, userID int64) (cycle.Prediction, bool, error) {
	s.mu.RLock()
	e, ok := s.predictions[userID]
	s.mu.RUnlock()
	if !ok {
		return cycle.Prediction{}, false, nil
	}
	if e.expired(s.now()) {
		s.mu.Lock()
		delete(s.predictions, userID)
		s.mu.Unlock()
		return cycle.Prediction{}, false, nil
	}
	return e.value, true, nil
}

// SavePrediction implements cycle.PredictionCache.
func (s *MemoryStore) SavePrediction(_ context.Context, p cycle.Prediction, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions[p.UserID] = entry[cycle.Prediction]{value: p, expiresAt: s.expiry(ttl)}
	return nil
}

// GetAnswer implements chat.AnswerCache.
func (s *MemoryStore) GetAnswer(_ context.Context, key string) (chat.AnswerRecord, bool, error) {
	s.mu.RLock()
	e, ok := s.answers[key]
	s.mu.RUnlock()
	if !ok {
		return chat.AnswerRecord{}, false, nil
	}
	if e.expired(s.now()) {
		s.mu.Lock()
		delete(s.answers, key)
		s.mu.Unlock()
		return chat.AnswerRecord{}, false, nil
	}
	return e.value, true, nil
}

// SaveAnswer implements chat.AnswerCache.
func (s *MemoryStore) SaveAnswer(_ context.Context, key string, record chat.AnswerRecord, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[key] = entry[chat.AnswerRecord]{value: record, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

var (
	_ cycle.PredictionCache = (*MemoryStore)(nil)
	_ chat.AnswerCache      = (*MemoryStore)(nil)
)
