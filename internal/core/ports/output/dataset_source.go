package ports

import (
	"context"

	"fuel-blend-prediction-service/internal/core/domain"
)

// DatasetSource defines the contract for acquiring the test dataset
type DatasetSource interface {
	// Load reads the whole table or file. Failures wrap domain.ErrDataSource.
	Load(ctx context.Context) (*domain.Frame, error)

	// Ping checks that the source is reachable
	Ping(ctx context.Context) error

	// Describe names the table or file being read, for logs
	Describe() string
}
