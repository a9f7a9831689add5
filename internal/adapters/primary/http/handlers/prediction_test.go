package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"fuel-blend-prediction-service/internal/core/domain"
	"fuel-blend-prediction-service/internal/core/services"
	"fuel-blend-prediction-service/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRouter() (*testutil.MockDatasetSource, *testutil.MockPredictor, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	source := new(testutil.MockDatasetSource)
	model := new(testutil.MockPredictor)

	svc := services.NewPredictionService(source, model, nil, services.PredictionConfig{
		ExcludeColumns: []string{"ID", "Target"},
		OutputNames:    []string{"P1", "P2"},
		MaxConcurrent:  1,
	})

	h := New(svc)
	r := gin.New()
	h.RegisterRoutes(r)

	return source, model, r
}

func testFrame(t *testing.T) *domain.Frame {
	t.Helper()
	f, err := domain.NewFrame(
		[]string{"ID", "F1", "F2"},
		[][]any{
			{int64(1), 1.0, 2.0},
			{int64(2), 3.0, 4.0},
			{int64(3), 5.0, 6.0},
		},
	)
	require.NoError(t, err)
	return f
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoot(t *testing.T) {
	_, _, r := setupRouter()

	w := get(r, "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Fuel Blend Prediction API is running!"}`, w.Body.String())
}

func TestGetPredictions(t *testing.T) {
	source, model, r := setupRouter()

	source.On("Load", mock.Anything).Return(testFrame(t), nil)
	model.On("Predict", mock.Anything, mock.AnythingOfType("*domain.Frame")).
		Return([][]float64{{10, 11}, {20, 21}, {30, 31}}, nil)

	w := get(r, "/get_predictions")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `[`+
		`{"ID":1,"F1":1,"F2":2,"P1":10,"P2":11},`+
		`{"ID":2,"F1":3,"F2":4,"P1":20,"P2":21},`+
		`{"ID":3,"F1":5,"F2":6,"P1":30,"P2":31}]`, w.Body.String())
	model.AssertExpectations(t)
}

func TestGetPredictions_EmptyDataset(t *testing.T) {
	source, model, r := setupRouter()

	empty, err := domain.NewFrame([]string{"ID", "F1"}, nil)
	require.NoError(t, err)
	source.On("Load", mock.Anything).Return(empty, nil)

	w := get(r, "/get_predictions")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"test dataset is empty"}`, w.Body.String())
	model.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestGetPredictions_Errors(t *testing.T) {
	tests := []struct {
		name     string
		loadErr  error
		predErr  error
		preds    [][]float64
		wantCode int
	}{
		{
			name:     "data source down",
			loadErr:  fmt.Errorf("%w: dial tcp: connection refused", domain.ErrDataSource),
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "feature mismatch",
			predErr:  fmt.Errorf("%w: got 1 want 2", domain.ErrFeatureMismatch),
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "invalid feature",
			predErr:  fmt.Errorf("%w: column F1 row 0", domain.ErrInvalidFeature),
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "non-finite prediction",
			preds:    [][]float64{{1, 2}, {math.Inf(1), 4}, {5, 6}},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "schema mismatch",
			preds:    [][]float64{{1}, {2}, {3}},
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "unexpected",
			predErr:  errors.New("boom"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, model, r := setupRouter()

			if tt.loadErr != nil {
				source.On("Load", mock.Anything).Return(nil, tt.loadErr)
			} else {
				source.On("Load", mock.Anything).Return(testFrame(t), nil)
				model.On("Predict", mock.Anything, mock.Anything).Return(tt.preds, tt.predErr)
			}

			w := get(r, "/get_predictions")

			assert.Equal(t, tt.wantCode, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestGetPredictions_UnexpectedErrorIsOpaque(t *testing.T) {
	source, model, r := setupRouter()

	source.On("Load", mock.Anything).Return(testFrame(t), nil)
	model.On("Predict", mock.Anything, mock.Anything).Return(nil, errors.New("secret detail"))

	w := get(r, "/get_predictions")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestGetModel(t *testing.T) {
	_, model, r := setupRouter()

	model.On("Info").Return(domain.ModelInfo{Name: "blend", Version: "3", FeatureCount: 2, OutputCount: 2})

	w := get(r, "/model")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "blend", resp["name"])
	assert.Equal(t, "mock://test_data", resp["source"])
	assert.Equal(t, []interface{}{"P1", "P2"}, resp["output_names"])
}

func TestHealthz(t *testing.T) {
	source, _, r := setupRouter()

	source.On("Ping", mock.Anything).Return(nil).Once()
	w := get(r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	source.On("Ping", mock.Anything).Return(fmt.Errorf("%w: ping: refused", domain.ErrDataSource)).Once()
	w = get(r, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
}
