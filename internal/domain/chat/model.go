package chat

import (
	"context"
	"time"

	"github.com/yanqian/cyclegpt/pkg/metrics"
)

// Request is the payload accepted by the chat endpoint.
type Request struct {
	Question string `json:"question"`
}

// Response is serialized back to chat callers.
type Response struct {
	Response   string              `json:"response"`
	Cached     bool                `json:"cached,omitempty"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// Config holds runtime knobs for the chat service.
type Config struct {
	Model       string
	Temperature float32
	Prompt      string
	CacheTTL    time.Duration
}

// AnswerRecord is the cached answer for a normalized question.
type AnswerRecord struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnswerCache persists answers keyed by normalized question.
type AnswerCache interface {
	GetAnswer(ctx context.Context, key string) (AnswerRecord, bool, error)
	SaveAnswer(ctx context.Context, key string, record AnswerRecord, ttl time.Duration) error
}

// TokenCounter estimates the token length of a text for the configured model.
type TokenCounter interface {
	Count(text string) int
}
