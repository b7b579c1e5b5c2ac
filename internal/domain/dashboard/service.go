package dashboard

import (
	"context"
	"log/slog"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

const (
	// NoResponseMessage is shown when the chatbot answers without a response.
	NoResponseMessage = "No response from CycleGPT."
	// ErrorMessage is shown when the chatbot cannot be reached.
	ErrorMessage = "There was an error contacting CycleGPT."
)

// ChatReply is the decoded body of a chatbot answer.
type ChatReply struct {
	Response string `json:"response"`
}

// PredictionFetcher retrieves a forecast from the prediction endpoint.
type PredictionFetcher interface {
	FetchPrediction(ctx context.Context, userID int64) (cycle.Prediction, error)
}

// ChatAsker posts a question to the chatbot endpoint.
type ChatAsker interface {
	Ask(ctx context.Context, question string) (ChatReply, error)
}

// Service drives the dashboard actions against the two backends.
type Service struct {
	fetcher PredictionFetcher
	asker   ChatAsker
	logger  *slog.Logger
}

// NewService wires the dashboard actions.
func NewService(fetcher PredictionFetcher, asker ChatAsker, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		asker:   asker,
		logger:  logger.With("component", "dashboard.service"),
	}
}

// Predict fetches the forecast for userID into the session. Failures are
// logged and leave the previous prediction in place.
func (s *Service) Predict(ctx context.Context, sess *Session, userID int64) {
	sess.setUserID(userID)
	prediction, err := s.fetcher.FetchPrediction(ctx, userID)
	if err != nil {
		s.logger.Error("prediction fetch failed", "session", sess.ID, "user_id", userID, "error", err)
		return
	}
	sess.setPrediction(prediction)
}

// Ask sends question to the chatbot and stores the text to display.
func (s *Service) Ask(ctx context.Context, sess *Session, question string) string {
	sess.setQuestion(question)
	text := s.answerText(ctx, question)
	sess.setResponse(text)
	return text
}

func (s *Service) answerText(ctx context.Context, question string) string {
	reply, err := s.asker.Ask(ctx, question)
	if err != nil {
		s.logger.Error("chatbot fetch failed", "error", err)
		return ErrorMessage
	}
	if reply.Response == "" {
		return NoResponseMessage
	}
	return reply.Response
}
