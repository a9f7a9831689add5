package handlers

import (
	"errors"
	"net/http"

	"fuel-blend-prediction-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// No data to predict on
	case errors.Is(err, domain.ErrEmptyDataset):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrEmptyDataset.Error()})

	// Dataset does not fit the model
	case errors.Is(err, domain.ErrFeatureMismatch),
		errors.Is(err, domain.ErrInvalidFeature),
		errors.Is(err, domain.ErrNonFinitePrediction):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	// Source or predictor unavailable
	case errors.Is(err, domain.ErrDataSource),
		errors.Is(err, domain.ErrPredictorUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	// Configuration drift between artifact and service
	case errors.Is(err, domain.ErrSchemaMismatch),
		errors.Is(err, domain.ErrOutputColumnConflict):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
