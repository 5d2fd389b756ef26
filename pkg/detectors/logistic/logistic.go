// Package logistic implements a pre-fitted binary logistic regression
// classifier.
package logistic

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/hed1ad/theftguard/pkg/detectors"
)

// Kind identifies logistic regression artifacts.
const Kind = "logistic_regression"

// Params is the fitted state.
type Params struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// Model computes P(theft) = sigmoid(w.x + b).
type Model struct {
	weights   []float64
	intercept float64
	cfg       detectors.Config
}

var _ detectors.Classifier = (*Model)(nil)

// Option configures a Model.
type Option func(*Model)

// WithThreshold sets the decision threshold.
func WithThreshold(t float64) Option {
	return func(m *Model) {
		m.cfg.Threshold = t
	}
}

// New creates a Model from fitted parameters.
func New(p Params, opts ...Option) (*Model, error) {
	if len(p.Weights) == 0 {
		return nil, errors.New("logistic: empty weights")
	}
	if err := detectors.CheckFinite("weights", p.Weights...); err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}
	if err := detectors.CheckFinite("intercept", p.Intercept); err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}

	m := &Model{
		weights:   make([]float64, len(p.Weights)),
		intercept: p.Intercept,
		cfg:       detectors.DefaultConfig(),
	}
	copy(m.weights, p.Weights)

	for _, opt := range opts {
		opt(m)
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}

	return m, nil
}

// Params returns a copy of the fitted state.
func (m *Model) Params() Params {
	w := make([]float64, len(m.weights))
	copy(w, m.weights)
	return Params{Weights: w, Intercept: m.intercept}
}

// Width returns the number of features.
func (m *Model) Width() int {
	return len(m.weights)
}

// Predict scores a normalized sample.
func (m *Model) Predict(sample []float64) (detectors.Prediction, error) {
	if err := detectors.CheckWidth(sample, len(m.weights)); err != nil {
		return detectors.Prediction{}, err
	}

	z := floats.Dot(m.weights, sample) + m.intercept
	return m.cfg.Decide(sigmoid(z)), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
