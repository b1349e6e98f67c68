package recommend

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"flexiprice/pkg/logger"
)

// Scorer estimates the purchase probability for a feature vector.
type Scorer interface {
	Score(features []float64) (float64, error)
}

// Model is a logistic scorer loaded from a JSON training artifact.
type Model struct {
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	TrainedAt    time.Time `json:"trained_at"`
}

// LoadModel reads a model artifact and checks it against the canonical
// feature order. A mismatch means the artifact was trained against a
// different builder and must not be served.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if err := m.checkFeatures(); err != nil {
		return nil, err
	}

	logger.Info("purchase model loaded", "path", path, "features", len(m.FeatureNames), "trained_at", m.TrainedAt)

	return &m, nil
}

func (m *Model) checkFeatures() error {
	want := FeatureNames()
	if len(m.FeatureNames) != len(want) {
		return fmt.Errorf("model artifact declares %d features, builder produces %d", len(m.FeatureNames), len(want))
	}
	for i, name := range want {
		if m.FeatureNames[i] != name {
			return fmt.Errorf("model artifact feature %d is %q, builder produces %q", i, m.FeatureNames[i], name)
		}
	}
	if len(m.Weights) != len(want) {
		return fmt.Errorf("model artifact has %d weights for %d features", len(m.Weights), len(want))
	}
	return nil
}

// Score returns sigmoid(w·x + b).
func (m *Model) Score(features []float64) (float64, error) {
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("feature vector length %d, model expects %d", len(features), len(m.Weights))
	}

	z := m.Bias
	for i, w := range m.Weights {
		z += w * features[i]
	}

	return 1 / (1 + math.Exp(-z)), nil
}
