package ports

import (
	"context"
	"time"

	"fuel-blend-prediction-service/internal/core/domain"
)

// Predictor defines the contract of a loaded model artifact. Implementations
// must be safe for concurrent use.
type Predictor interface {
	// Predict maps each row of features, positionally, to OutputCount values
	Predict(ctx context.Context, features *domain.Frame) ([][]float64, error)

	// OutputCount is the number of values produced per row
	OutputCount() int

	Info() domain.ModelInfo
}

// Prediction outcomes reported to PredictionMetrics
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// PredictionMetrics receives one observation per prediction request
type PredictionMetrics interface {
	ObservePrediction(outcome string, rows int, duration time.Duration)
}
