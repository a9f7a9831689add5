package handlers

import (
	"fuel-blend-prediction-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	predictionSvc *services.PredictionService
}

func New(predictionSvc *services.PredictionService) *Handler {
	return &Handler{predictionSvc: predictionSvc}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Root)

	// Predictions
	r.GET("/get_predictions", h.GetPredictions)

	// Model
	r.GET("/model", h.GetModel)

	// Health
	r.GET("/healthz", h.Healthz)
}
