package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"fuel-blend-prediction-service/internal/core/domain"
)

// Artifact is a multi-output regression model. It is immutable once loaded,
// so Predict may be called from many goroutines.
type Artifact struct {
	name         string
	version      string
	path         string
	nFeatures    int
	featureNames []string
	encoders     map[int]map[string]float64
	outputs      []regressor
}

func (a *Artifact) OutputCount() int {
	return len(a.outputs)
}

func (a *Artifact) Info() domain.ModelInfo {
	kinds := make([]string, len(a.outputs))
	for i, o := range a.outputs {
		kinds[i] = o.kind()
	}
	return domain.ModelInfo{
		Name:         a.name,
		Version:      a.version,
		Path:         a.path,
		FeatureCount: a.nFeatures,
		FeatureNames: a.featureNames,
		OutputCount:  len(a.outputs),
		OutputKinds:  kinds,
	}
}

// Predict evaluates every output for every row. Column j of features is
// feature j; names are not consulted.
func (a *Artifact) Predict(ctx context.Context, features *domain.Frame) ([][]float64, error) {
	if a.nFeatures > 0 && len(features.Columns) != a.nFeatures {
		return nil, fmt.Errorf("%w: got %d feature columns, model expects %d", domain.ErrFeatureMismatch, len(features.Columns), a.nFeatures)
	}

	out := make([][]float64, features.Len())
	x := make([]float64, len(features.Columns))
	for i, row := range features.Rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrPredictorUnavailable, err)
			}
		}

		for j, v := range row {
			f, err := a.encode(j, v)
			if err == nil && math.IsInf(f, 0) {
				err = fmt.Errorf("non-finite value %v", v)
			}
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", domain.ErrInvalidFeature, i, features.Columns[j], err)
			}
			x[j] = f
		}

		preds := make([]float64, len(a.outputs))
		for k, o := range a.outputs {
			p, err := o.predict(x)
			if err != nil {
				return nil, fmt.Errorf("row %d output %d: %w", i, k, err)
			}
			preds[k] = p
		}
		out[i] = preds
	}
	return out, nil
}

// encode turns a dataset scalar into a model input. nil is NaN, meaning missing.
func (a *Artifact) encode(j int, v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return t.Float64()
	case string:
		if codes, ok := a.encoders[j]; ok {
			if code, ok := codes[t]; ok {
				return code, nil
			}
			return 0, fmt.Errorf("unknown category %q", t)
		}
		s := strings.TrimSpace(t)
		if s == "" {
			return math.NaN(), nil
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
