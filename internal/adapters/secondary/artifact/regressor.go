package artifact

import (
	"fmt"
	"math"

	"fuel-blend-prediction-service/internal/core/domain"
)

type regressor interface {
	kind() string
	predict(x []float64) (float64, error)
}

type linear struct {
	intercept    float64
	coefficients []float64
}

func (l *linear) kind() string { return KindLinear }

func (l *linear) predict(x []float64) (float64, error) {
	if len(x) < len(l.coefficients) {
		return 0, fmt.Errorf("%w: linear output needs %d features, got %d", domain.ErrFeatureMismatch, len(l.coefficients), len(x))
	}
	y := l.intercept
	for j, c := range l.coefficients {
		if math.IsNaN(x[j]) {
			return 0, fmt.Errorf("%w: missing value for feature %d", domain.ErrInvalidFeature, j)
		}
		y += c * x[j]
	}
	return y, nil
}

// TreeNode is one node of a regression tree. A node with Leaf set is
// terminal; otherwise x[Feature] < Threshold goes Left, else Right, and a
// missing value follows DefaultLeft.
type TreeNode struct {
	Feature     int      `json:"feature"`
	Threshold   float64  `json:"threshold"`
	Left        int      `json:"left"`
	Right       int      `json:"right"`
	DefaultLeft bool     `json:"default_left"`
	Leaf        *float64 `json:"leaf,omitempty"`
}

func (n TreeNode) IsLeaf() bool {
	return n.Leaf != nil
}

type treeEnsemble struct {
	baseScore float64
	trees     [][]TreeNode
}

func (e *treeEnsemble) kind() string { return KindTreeEnsemble }

func (e *treeEnsemble) predict(x []float64) (float64, error) {
	y := e.baseScore
	for _, nodes := range e.trees {
		v, err := walk(nodes, x)
		if err != nil {
			return 0, err
		}
		y += v
	}
	return y, nil
}

func walk(nodes []TreeNode, x []float64) (float64, error) {
	idx := 0
	for {
		n := nodes[idx]
		if n.IsLeaf() {
			return *n.Leaf, nil
		}
		if n.Feature >= len(x) {
			return 0, fmt.Errorf("%w: tree splits on feature %d, got %d features", domain.ErrFeatureMismatch, n.Feature, len(x))
		}

		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.DefaultLeft {
				idx = n.Left
			} else {
				idx = n.Right
			}
		case v < n.Threshold:
			idx = n.Left
		default:
			idx = n.Right
		}
	}
}
