package cycle

import (
	"errors"
	"fmt"
	"math"

	apperrors "github.com/yanqian/cyclegpt/pkg/errors"
)

const (
	// ModelRegression fits cycle length against lifestyle features.
	ModelRegression = "regression"
	// ModelLatest reuses the length of the most recent recorded cycle.
	ModelLatest = "latest"

	defaultLutealDays  = 14
	defaultFertileDays = 4
)

// Model predicts the length of the cycle that follows a record.
type Model interface {
	Name() string
	PredictLength(rec Record) (float64, error)
}

// RegressionModel is a linear model over age, BMI, stress, sleep, diet and
// exercise frequency.
type RegressionModel struct {
	fit      linearFit
	diet     *labelEncoder
	exercise *labelEncoder
}

// TrainRegression fits a RegressionModel on every record.
func TrainRegression(records []Record) (*RegressionModel, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to train on")
	}
	diets := make([]string, len(records))
	exercises := make([]string, len(records))
	for i, rec := range records {
		diets[i] = rec.Diet
		exercises[i] = rec.ExerciseFrequency
	}
	m := &RegressionModel{
		diet:     fitLabelEncoder(diets),
		exercise: fitLabelEncoder(exercises),
	}

	x := make([][]float64, len(records))
	y := make([]float64, len(records))
	for i, rec := range records {
		features, err := m.features(rec)
		if err != nil {
			return nil, err
		}
		x[i] = features
		y[i] = rec.CycleLength
	}
	fit, err := fitLinear(x, y)
	if err != nil {
		return nil, err
	}
	m.fit = fit
	return m, nil
}

func (m *RegressionModel) Name() string { return ModelRegression }

// PredictLength implements Model.
func (m *RegressionModel) PredictLength(rec Record) (float64, error) {
	features, err := m.features(rec)
	if err != nil {
		return 0, err
	}
	return m.fit.predict(features), nil
}

func (m *RegressionModel) features(rec Record) ([]float64, error) {
	diet, err := m.diet.transform(rec.Diet)
	if err != nil {
		return nil, fmt.Errorf("encode diet: %w", err)
	}
	exercise, err := m.exercise.transform(rec.ExerciseFrequency)
	if err != nil {
		return nil, fmt.Errorf("encode exercise frequency: %w", err)
	}
	return []float64{rec.Age, rec.BMI, rec.StressLevel, rec.SleepHours, diet, exercise}, nil
}

// LatestModel predicts the next cycle to be as long as the latest one.
type LatestModel struct{}

func (LatestModel) Name() string { return ModelLatest }

// PredictLength implements Model.
func (LatestModel) PredictLength(rec Record) (float64, error) {
	if rec.CycleLength <= 0 {
		return 0, errors.New("record has no cycle length")
	}
	return rec.CycleLength, nil
}

// Predictor turns a user's history into a Prediction.
type Predictor struct {
	model       Model
	lutealDays  int
	fertileDays int
}

// NewPredictor builds a predictor; non-positive day counts fall back to 14 and 4.
func NewPredictor(model Model, lutealDays, fertileDays int) *Predictor {
	if lutealDays <= 0 {
		lutealDays = defaultLutealDays
	}
	if fertileDays <= 0 {
		fertileDays = defaultFertileDays
	}
	return &Predictor{model: model, lutealDays: lutealDays, fertileDays: fertileDays}
}

// ModelName reports the backing model.
func (p *Predictor) ModelName() string { return p.model.Name() }

// Predict forecasts the next cycle from the user's most recent record.
func (p *Predictor) Predict(userID int64, records []Record) (Prediction, error) {
	latest, ok := latestRecord(userID, records)
	if !ok {
		return Prediction{}, apperrors.Wrap(apperrors.CodeUserNotFound, "User not found", nil)
	}

	length, err := p.model.PredictLength(latest)
	if err != nil {
		return Prediction{}, apperrors.Wrap(apperrors.CodePredictionError, "cycle length prediction failed", err)
	}
	if math.IsNaN(length) || math.IsInf(length, 0) {
		return Prediction{}, apperrors.Wrap(apperrors.CodePredictionError, "cycle length prediction is not finite", nil)
	}

	next := latest.CycleStart.AddDays(int(length))
	ovulation := next.AddDays(-p.lutealDays)
	fertileStart := ovulation.AddDays(-p.fertileDays)

	return Prediction{
		UserID:               userID,
		PredictedNextCycle:   next,
		FertileWindowStart:   fertileStart,
		FertileWindowEnd:     ovulation,
		PredictedCycleLength: math.Round(length*100) / 100,
		FertileWindowDays:    fertileStart.DaysUntil(ovulation),
	}, nil
}

func latestRecord(userID int64, records []Record) (Record, bool) {
	var (
		latest Record
		found  bool
	)
	for _, rec := range records {
		if rec.UserID != userID {
			continue
		}
		if !found || rec.CycleStart.After(latest.CycleStart.Time) {
			latest = rec
			found = true
		}
	}
	return latest, found
}
