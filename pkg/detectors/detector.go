// Package detectors defines the pre-fitted normalization and classification
// capabilities the theft scorer is built from.
package detectors

import (
	"errors"
	"fmt"
	"math"
)

// ErrWidth is returned when a sample does not match the fitted width.
var ErrWidth = errors.New("sample width mismatch")

// Label is the binary classifier output.
type Label int

const (
	LabelNormal Label = 0
	LabelTheft  Label = 1
)

// String returns a human-readable label.
func (l Label) String() string {
	if l == LabelTheft {
		return "theft"
	}
	return "normal"
}

// Prediction is a classifier decision for one sample.
type Prediction struct {
	// Label is the predicted class.
	Label Label `json:"label"`
	// Probability is P(theft) in [0, 1].
	Probability float64 `json:"probability"`
}

// Confidence returns the probability of the predicted class.
func (p Prediction) Confidence() float64 {
	if p.Label == LabelTheft {
		return p.Probability
	}
	return 1 - p.Probability
}

// Normalizer rescales a feature vector the way the classifier was trained.
type Normalizer interface {
	// Transform returns a rescaled copy of sample.
	Transform(sample []float64) ([]float64, error)

	// Width is the number of features the normalizer was fitted on.
	Width() int
}

// Classifier scores a normalized feature vector.
type Classifier interface {
	// Predict returns the label and P(theft) for a single sample.
	Predict(sample []float64) (Prediction, error)

	// Width is the number of features the classifier was fitted on.
	Width() int
}

// Meta describes the training run an artifact came from.
type Meta struct {
	Kind          string   `json:"kind"`
	SchemaVersion string   `json:"schema_version"`
	FeatureNames  []string `json:"feature_names"`
	RunID         string   `json:"run_id,omitempty"`
}

// Config holds common configuration for classifiers.
type Config struct {
	// Threshold is the P(theft) above which a sample is labelled theft.
	Threshold float64
}

// DefaultConfig returns the decision rule used by the deployed model.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.5,
	}
}

// Decide applies the threshold to a probability.
func (c Config) Decide(probability float64) Prediction {
	label := LabelNormal
	if probability > c.Threshold {
		label = LabelTheft
	}
	return Prediction{Label: label, Probability: probability}
}

// Validate rejects thresholds outside [0, 1].
func (c Config) Validate() error {
	if !(c.Threshold >= 0 && c.Threshold <= 1) {
		return fmt.Errorf("threshold %v outside [0, 1]", c.Threshold)
	}
	return nil
}

// CheckWidth validates a sample against a fitted width.
func CheckWidth(sample []float64, width int) error {
	if len(sample) != width {
		return fmt.Errorf("%w: got %d features, want %d", ErrWidth, len(sample), width)
	}
	return nil
}

// CheckFinite rejects NaN and infinite parameters.
func CheckFinite(name string, values ...float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s[%d] is not finite", name, i)
		}
	}
	return nil
}
