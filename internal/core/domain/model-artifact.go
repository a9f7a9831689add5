package domain

// ModelInfo describes a loaded artifact. It is projected from the artifact
// file and never changes after boot.
type ModelInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Path         string   `json:"path"`
	FeatureCount int      `json:"feature_count"`
	FeatureNames []string `json:"feature_names,omitempty"`
	OutputCount  int      `json:"output_count"`
	OutputKinds  []string `json:"output_kinds"`
}
