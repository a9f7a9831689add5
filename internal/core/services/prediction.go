package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"fuel-blend-prediction-service/internal/core/domain"
	ports "fuel-blend-prediction-service/internal/core/ports/output"
)

var tracer = otel.Tracer("fuel-blend-prediction-service/services")

// PredictionConfig holds the request-independent settings of the pipeline
type PredictionConfig struct {
	ExcludeColumns []string
	OutputNames    []string
	LoadTimeout    time.Duration
	MaxConcurrent  int64
}

// PredictionService runs load, drop, predict, validate and merge for a request
type PredictionService struct {
	source  ports.DatasetSource
	model   ports.Predictor
	metrics ports.PredictionMetrics
	cfg     PredictionConfig
	sem     *semaphore.Weighted
}

// NewPredictionService creates a new prediction service. metrics may be nil.
func NewPredictionService(
	source ports.DatasetSource,
	model ports.Predictor,
	metrics ports.PredictionMetrics,
	cfg PredictionConfig,
) *PredictionService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &PredictionService{
		source:  source,
		model:   model,
		metrics: metrics,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// ModelDescription is the artifact info together with how its outputs are labelled
type ModelDescription struct {
	domain.ModelInfo
	OutputNames     []string `json:"output_names"`
	ExcludedColumns []string `json:"excluded_columns"`
	Source          string   `json:"source"`
}

func (s *PredictionService) Describe() ModelDescription {
	return ModelDescription{
		ModelInfo:       s.model.Info(),
		OutputNames:     s.cfg.OutputNames,
		ExcludedColumns: s.cfg.ExcludeColumns,
		Source:          s.source.Describe(),
	}
}

// CheckOutputs reports whether the configured names fit the artifact. It is
// advisory; GetPredictions enforces the same rule on every request.
func (s *PredictionService) CheckOutputs() error {
	if got, want := s.model.OutputCount(), len(s.cfg.OutputNames); got != want {
		return fmt.Errorf("%w: model produces %d output columns, %d names configured", domain.ErrSchemaMismatch, got, want)
	}
	return nil
}

func (s *PredictionService) Ping(ctx context.Context) error {
	return s.source.Ping(ctx)
}

// GetPredictions returns one record per dataset row, in dataset order, with
// the predicted columns appended.
func (s *PredictionService) GetPredictions(ctx context.Context) (records []domain.Record, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "PredictionService.GetPredictions")
	rows := 0
	defer func() {
		s.metrics.ObservePrediction(outcome(err), rows, time.Since(start))
		if err != nil && !errors.Is(err, domain.ErrEmptyDataset) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	frame, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	rows = frame.Len()
	span.SetAttributes(attribute.Int("dataset.rows", rows), attribute.Int("dataset.columns", len(frame.Columns)))

	if frame.Empty() {
		return nil, domain.ErrEmptyDataset
	}

	features := frame.DropColumns(s.cfg.ExcludeColumns)

	predictions, err := s.predict(ctx, features)
	if err != nil {
		return nil, err
	}

	if err := validateOutputShape(predictions, len(s.cfg.OutputNames)); err != nil {
		return nil, err
	}

	return domain.Merge(frame, s.cfg.OutputNames, predictions)
}

func (s *PredictionService) load(ctx context.Context) (*domain.Frame, error) {
	ctx, span := tracer.Start(ctx, "DatasetSource.Load")
	defer span.End()

	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}

	frame, err := s.source.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrDataSource) {
			err = fmt.Errorf("%w: %s: %w", domain.ErrDataSource, s.source.Describe(), err)
		}
		return nil, err
	}
	return frame, nil
}

func (s *PredictionService) predict(ctx context.Context, features *domain.Frame) ([][]float64, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPredictorUnavailable, err)
	}
	defer s.sem.Release(1)

	ctx, span := tracer.Start(ctx, "Predictor.Predict")
	defer span.End()

	return s.model.Predict(ctx, features)
}

// validateOutputShape requires every predicted row to be exactly as wide as
// the configured name list and every value to be finite.
func validateOutputShape(predictions [][]float64, names int) error {
	for i, row := range predictions {
		if len(row) != names {
			return fmt.Errorf("%w: model produced %d output columns, %d names configured", domain.ErrSchemaMismatch, len(row), names)
		}
		for k, p := range row {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("%w: row %d output %d is %v", domain.ErrNonFinitePrediction, i, k, p)
			}
		}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return ports.OutcomeSuccess
	case errors.Is(err, domain.ErrEmptyDataset):
		return ports.OutcomeEmpty
	default:
		return ports.OutcomeError
	}
}

type nopMetrics struct{}

func (nopMetrics) ObservePrediction(string, int, time.Duration) {}
