package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/yanqian/cyclegpt/pkg/errors"
)

// Service exposes cycle prediction capabilities.
type Service interface {
	Predict(ctx context.Context, userID int64) (Prediction, error)
	Timeline(ctx context.Context, userID int64) (Timeline, error)
}

type service struct {
	cfg       Config
	repo      RecordRepository
	cache     PredictionCache
	predictor *Predictor
	logger    *slog.Logger
}

// NewService trains the configured model on the full dataset and wires the
// prediction domain.
func NewService(ctx context.Context, cfg Config, repo RecordRepository, cache PredictionCache, logger *slog.Logger) (Service, error) {
	logger = logger.With("component", "cycle.service")
	model, err := buildModel(ctx, cfg.Model, repo, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("cycle model ready", "model", model.Name())
	return &service{
		cfg:       cfg,
		repo:      repo,
		cache:     cache,
		predictor: NewPredictor(model, cfg.LutealDays, cfg.FertileDays),
		logger:    logger,
	}, nil
}

func buildModel(ctx context.Context, name string, repo RecordRepository, logger *slog.Logger) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ModelLatest:
		return LatestModel{}, nil
	case "", ModelRegression:
		records, err := repo.ListAll(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatasetError, "failed to load training records", err)
		}
		model, err := TrainRegression(records)
		if err != nil {
			logger.Warn("regression training failed, using latest cycle length", "error", err, "records", len(records))
			return LatestModel{}, nil
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unknown prediction model %q", name)
	}
}

func (s *service) Predict(ctx context.Context, userID int64) (Prediction, error) {
	if userID <= 0 {
		return Prediction{}, apperrors.Wrap(apperrors.CodeInvalidInput, "user_id must be a positive integer", nil)
	}

	if cached, ok, err := s.cache.GetPrediction(ctx, userID); err != nil {
		s.logger.Warn("prediction cache lookup failed", "user_id", userID, "error", err)
	} else if ok {
		return cached, nil
	}

	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Prediction{}, apperrors.Wrap(apperrors.CodeDatasetError, "failed to load cycle records", err)
	}

	prediction, err := s.predictor.Predict(userID, records)
	if err != nil {
		return Prediction{}, err
	}
	s.logger.Info("cycle predicted", "user_id", userID, "model", s.predictor.ModelName(), "next_cycle", prediction.PredictedNextCycle.String())

	if err := s.cache.SavePrediction(ctx, prediction, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("prediction cache save failed", "user_id", userID, "error", err)
	}
	return prediction, nil
}

func (s *service) Timeline(ctx context.Context, userID int64) (Timeline, error) {
	prediction, err := s.Predict(ctx, userID)
	if err != nil {
		return Timeline{}, err
	}
	return LayoutPhases(prediction), nil
}
