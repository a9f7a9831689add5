package artifact

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fuel-blend-prediction-service/internal/core/domain"
)

// Output kinds understood by the loader
const (
	KindLinear       = "linear"
	KindTreeEnsemble = "tree_ensemble"
)

type document struct {
	Name         string                        `json:"name"`
	Version      string                        `json:"version"`
	NFeatures    int                           `json:"n_features"`
	FeatureNames []string                      `json:"feature_names"`
	Encoders     map[string]map[string]float64 `json:"encoders"`
	Outputs      []outputDocument              `json:"outputs"`
}

type outputDocument struct {
	Kind         string         `json:"kind"`
	Intercept    float64        `json:"intercept"`
	Coefficients []float64      `json:"coefficients"`
	BaseScore    float64        `json:"base_score"`
	Trees        []treeDocument `json:"trees"`
}

type treeDocument struct {
	Nodes []TreeNode `json:"nodes"`
}

// Load reads and validates the artifact at path. Paths ending in ".gz" are
// gunzipped first. Every failure wraps domain.ErrArtifactLoad.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrArtifactLoad, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrArtifactLoad, path, err)
		}
		defer gz.Close()
		r = gz
	}

	a, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.path = path
	return a, nil
}

// Decode parses an artifact document from r.
func Decode(r io.Reader) (*Artifact, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", domain.ErrArtifactLoad, err)
	}

	a, err := build(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrArtifactLoad, err)
	}
	return a, nil
}

func build(doc document) (*Artifact, error) {
	if len(doc.Outputs) == 0 {
		return nil, fmt.Errorf("artifact declares no outputs")
	}

	nFeatures := doc.NFeatures
	if nFeatures < 0 {
		return nil, fmt.Errorf("n_features must not be negative")
	}
	if len(doc.FeatureNames) > 0 {
		if nFeatures == 0 {
			nFeatures = len(doc.FeatureNames)
		} else if nFeatures != len(doc.FeatureNames) {
			return nil, fmt.Errorf("n_features is %d but %d feature names are listed", nFeatures, len(doc.FeatureNames))
		}
	}
	if nFeatures == 0 {
		for _, o := range doc.Outputs {
			if o.Kind == KindLinear {
				nFeatures = len(o.Coefficients)
				break
			}
		}
	}

	outputs := make([]regressor, 0, len(doc.Outputs))
	for i, o := range doc.Outputs {
		reg, err := buildOutput(o, nFeatures)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		outputs = append(outputs, reg)
	}

	encoders := make(map[int]map[string]float64, len(doc.Encoders))
	for key, codes := range doc.Encoders {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || (nFeatures > 0 && idx >= nFeatures) {
			return nil, fmt.Errorf("encoder key %q is not a feature index", key)
		}
		encoders[idx] = codes
	}

	return &Artifact{
		name:         doc.Name,
		version:      doc.Version,
		nFeatures:    nFeatures,
		featureNames: doc.FeatureNames,
		encoders:     encoders,
		outputs:      outputs,
	}, nil
}

func buildOutput(o outputDocument, nFeatures int) (regressor, error) {
	switch o.Kind {
	case KindLinear:
		if len(o.Coefficients) == 0 {
			return nil, fmt.Errorf("linear output has no coefficients")
		}
		if nFeatures > 0 && len(o.Coefficients) != nFeatures {
			return nil, fmt.Errorf("linear output has %d coefficients, expected %d", len(o.Coefficients), nFeatures)
		}
		return &linear{intercept: o.Intercept, coefficients: o.Coefficients}, nil

	case KindTreeEnsemble:
		if len(o.Trees) == 0 {
			return nil, fmt.Errorf("tree ensemble has no trees")
		}
		trees := make([][]TreeNode, 0, len(o.Trees))
		for t, tree := range o.Trees {
			if err := validateTree(tree.Nodes, nFeatures); err != nil {
				return nil, fmt.Errorf("tree %d: %w", t, err)
			}
			trees = append(trees, tree.Nodes)
		}
		return &treeEnsemble{baseScore: o.BaseScore, trees: trees}, nil

	default:
		return nil, fmt.Errorf("unsupported output kind %q", o.Kind)
	}
}

// validateTree requires children to come after their parent, which rules out
// cycles and bounds every walk by len(nodes).
func validateTree(nodes []TreeNode, nFeatures int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range nodes {
		if n.IsLeaf() {
			continue
		}
		if n.Feature < 0 || (nFeatures > 0 && n.Feature >= nFeatures) {
			return fmt.Errorf("node %d splits on feature %d", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(nodes) || n.Right <= i || n.Right >= len(nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}
