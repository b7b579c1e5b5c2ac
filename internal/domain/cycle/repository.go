package cycle

import (
	"context"
	"time"
)

// RecordRepository reads the cycle dataset.
type RecordRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]Record, error)
	ListAll(ctx context.Context) ([]Record, error)
}

// PredictionCache stores computed predictions per user.
type PredictionCache interface {
	GetPrediction(ctx context.Context, userID int64) (Prediction, bool, error)
	SavePrediction(ctx context.Context, p Prediction, ttl time.Duration) error
}
