package tokens

import (
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// Counter counts tokens with the tiktoken encoding of a model. When no
// encoding can be loaded it counts whitespace separated words.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter resolves the encoding for model, falling back to cl100k_base.
func NewCounter(model string, logger *slog.Logger) *Counter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, counting words", "model", model, "error", err)
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// Count returns the token length of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c == nil || c.enc == nil {
		return len(strings.Fields(text))
	}
	return len(c.enc.Encode(text, nil, nil))
}
