package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/cyclegpt/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/cyclegpt/pkg/errors"
	"github.com/yanqian/cyclegpt/pkg/metrics"
)

const defaultPrompt = "You are CycleGPT, a compassionate and science-based assistant for menstrual health. Answer the following question clearly and concisely, citing medical knowledge when possible."

// Service answers menstrual health questions.
type Service interface {
	Ask(ctx context.Context, req Request) (Response, error)
}

// ChatClient is the subset of the ChatGPT client used by the chat service.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

type service struct {
	cfg     Config
	client  ChatClient
	cache   AnswerCache
	counter TokenCounter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires up the chat domain.
func NewService(cfg Config, client ChatClient, cache AnswerCache, counter TokenCounter, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		client:  client,
		cache:   cache,
		counter: counter,
		logger:  logger.With("component", "chat.service"),
		now:     time.Now,
	}
}

func (s *service) Ask(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Please provide a question.", nil)
	}

	key := normalizeQuestion(question)
	if key != "" {
		cached, ok, err := s.cache.GetAnswer(ctx, key)
		if err != nil {
			s.logger.Warn("chat cache lookup failed", "error", err)
		} else if ok {
			return Response{Response: cached.Answer, Cached: true}, nil
		}
	}

	messages := s.buildMessages(question)
	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		var apiErr *chatgpt.APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return Response{}, apperrors.Wrap(apperrors.CodeLLMRejected, "chatgpt request failed", err)
		}
		return Response{}, apperrors.Wrap(apperrors.CodeLLMError, "chatgpt request failed", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, apperrors.Wrap(apperrors.CodeLLMError, "chatgpt returned no choices", nil)
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeLLMError, "chatgpt response empty", nil)
	}

	if key != "" {
		record := AnswerRecord{Question: question, Answer: answer, CreatedAt: s.now()}
		if err := s.cache.SaveAnswer(ctx, key, record, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("chat cache save failed", "error", err)
		}
	}

	usage := metrics.NewTokenUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if usage.IsZero() {
		usage = s.usage(messages, answer)
	}
	s.logger.Info("chat answered", "prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens)
	return Response{Response: answer, TokenUsage: &usage}, nil
}

func (s *service) buildMessages(question string) []chatgpt.Message {
	prompt := strings.TrimSpace(s.cfg.Prompt)
	if prompt == "" {
		prompt = defaultPrompt
	}
	return []chatgpt.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: fmt.Sprintf("Question: %s", question)},
	}
}

func (s *service) usage(messages []chatgpt.Message, answer string) metrics.TokenUsage {
	if s.counter == nil {
		return metrics.TokenUsage{}
	}
	prompt := 0
	for _, msg := range messages {
		prompt += s.counter.Count(msg.Content)
	}
	return metrics.NewTokenUsage(prompt, s.counter.Count(answer))
}
