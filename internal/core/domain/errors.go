package domain

import "errors"

// ============================================================================
// Boot Errors
// ============================================================================

var (
	ErrArtifactLoad = errors.New("model artifact could not be loaded")
)

// ============================================================================
// Dataset Errors
// ============================================================================

var (
	ErrDataSource    = errors.New("dataset source failed")
	ErrEmptyDataset  = errors.New("test dataset is empty")
	ErrInvalidFrame  = errors.New("dataset is not rectangular")
	ErrDuplicateName = errors.New("duplicate column name")
)

// ============================================================================
// Prediction Errors
// ============================================================================

// Input errors
var (
	ErrFeatureMismatch = errors.New("feature count does not match the model")
	ErrInvalidFeature  = errors.New("feature value cannot be used by the model")
)

// Output errors
var (
	ErrSchemaMismatch       = errors.New("model output does not match configured output names")
	ErrOutputColumnConflict = errors.New("predicted column name collides with a dataset column")
	ErrNonFinitePrediction  = errors.New("model produced a non-finite prediction")
)

// Capacity errors
var (
	ErrPredictorUnavailable = errors.New("predictor is at capacity")
)
