package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"fuel-blend-prediction-service/internal/core/domain"
)

// MockDatasetSource is a mock of DatasetSource.
type MockDatasetSource struct {
	mock.Mock
}

func (m *MockDatasetSource) Load(ctx context.Context) (*domain.Frame, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Frame), args.Error(1)
}

func (m *MockDatasetSource) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDatasetSource) Describe() string {
	return "mock://test_data"
}

// MockPredictor is a mock of Predictor.
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, features *domain.Frame) ([][]float64, error) {
	args := m.Called(ctx, features)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float64), args.Error(1)
}

func (m *MockPredictor) OutputCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockPredictor) Info() domain.ModelInfo {
	args := m.Called()
	return args.Get(0).(domain.ModelInfo)
}

// MockPredictionMetrics is a mock of PredictionMetrics.
type MockPredictionMetrics struct {
	mock.Mock
}

func (m *MockPredictionMetrics) ObservePrediction(outcome string, rows int, duration time.Duration) {
	m.Called(outcome, rows, duration)
}
