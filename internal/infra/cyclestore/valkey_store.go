package cyclestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/cyclegpt/internal/domain/chat"
	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

// ValkeyStore persists cache entries in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "cyclegpt"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// GetPrediction implements cycle.PredictionCache.
func (s *ValkeyStore) GetPrediction(ctx context.Context, userID int64) (cycle.Prediction, bool, error) {
	var p cycle.Prediction
	ok, err := s.getJSON(ctx, s.predictionKey(userID), &p)
	return p, ok, err
}

// SavePrediction implements cycle.PredictionCache.
func (s *ValkeyStore) SavePrediction(ctx context.Context, p cycle.Prediction, ttl time.Duration) error {
	return s.setJSON(ctx, s.predictionKey(p.UserID), p, ttl)
}

// GetAnswer implements chat.AnswerCache.
func (s *ValkeyStore) GetAnswer(ctx context.Context, key string) (chat.AnswerRecord, bool, error) {
	var rec chat.AnswerRecord
	if key == "" {
		return rec, false, nil
	}
	ok, err := s.getJSON(ctx, s.answerKey(key), &rec)
	return rec, ok, err
}

// SaveAnswer implements chat.AnswerCache.
func (s *ValkeyStore) SaveAnswer(ctx context.Context, key string, record chat.AnswerRecord, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	return s.setJSON(ctx, s.answerKey(key), record, ttl)
}

func (s *ValkeyStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *ValkeyStore) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(key).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) predictionKey(userID int64) string {
	return fmt.Sprintf("%s:prediction:%d", s.prefix, userID)
}

func (s *ValkeyStore) answerKey(key string) string {
	return fmt.Sprintf("%s:answer:%s", s.prefix, key)
}

var (
	_ cycle.PredictionCache = (*ValkeyStore)(nil)
	_ chat.AnswerCache      = (*ValkeyStore)(nil)
)
