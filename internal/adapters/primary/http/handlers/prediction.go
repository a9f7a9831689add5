package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"fuel-blend-prediction-service/internal/adapters/primary/http/middleware"
	"fuel-blend-prediction-service/internal/core/domain"
)

const rootMessage = "Fuel Blend Prediction API is running!"

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": rootMessage})
}

func (h *Handler) GetPredictions(c *gin.Context) {
	records, err := h.predictionSvc.GetPredictions(c.Request.Context())
	if err != nil {
		entry := log.WithError(err).WithField("request_id", c.GetString(middleware.ContextRequestID))
		if errors.Is(err, domain.ErrEmptyDataset) {
			entry.Info("no rows to predict")
		} else {
			entry.Error("get predictions failed")
		}
		_ = c.Error(err)
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetModel(c *gin.Context) {
	c.JSON(http.StatusOK, h.predictionSvc.Describe())
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.predictionSvc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
