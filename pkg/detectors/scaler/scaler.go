// Package scaler implements a pre-fitted standard scaler.
package scaler

import (
	"errors"
	"fmt"

	"github.com/hed1ad/theftguard/pkg/detectors"
)

// Kind identifies scaler artifacts.
const Kind = "standard_scaler"

// Params is the fitted state: per-feature mean and scale.
type Params struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Scaler standardizes samples as (x - mean) / scale.
type Scaler struct {
	mean  []float64
	scale []float64
}

var _ detectors.Normalizer = (*Scaler)(nil)

// New creates a Scaler from fitted parameters.
func New(p Params) (*Scaler, error) {
	if len(p.Mean) == 0 {
		return nil, errors.New("scaler: empty mean")
	}
	if len(p.Mean) != len(p.Scale) {
		return nil, fmt.Errorf("scaler: %d means but %d scales", len(p.Mean), len(p.Scale))
	}
	if err := detectors.CheckFinite("mean", p.Mean...); err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}
	if err := detectors.CheckFinite("scale", p.Scale...); err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}
	for i, s := range p.Scale {
		if s <= 0 {
			return nil, fmt.Errorf("scaler: scale[%d] = %v, must be positive", i, s)
		}
	}

	s := &Scaler{
		mean:  make([]float64, len(p.Mean)),
		scale: make([]float64, len(p.Scale)),
	}
	copy(s.mean, p.Mean)
	copy(s.scale, p.Scale)

	return s, nil
}

// Identity returns a scaler that leaves samples of the given width unchanged.
func Identity(width int) *Scaler {
	s := &Scaler{
		mean:  make([]float64, width),
		scale: make([]float64, width),
	}
	for i := range s.scale {
		s.scale[i] = 1
	}
	return s
}

// Params returns a copy of the fitted state.
func (s *Scaler) Params() Params {
	p := Params{
		Mean:  make([]float64, len(s.mean)),
		Scale: make([]float64, len(s.scale)),
	}
	copy(p.Mean, s.mean)
	copy(p.Scale, s.scale)
	return p
}

// Width returns the number of features.
func (s *Scaler) Width() int {
	return len(s.mean)
}

// Transform standardizes a sample.
func (s *Scaler) Transform(sample []float64) ([]float64, error) {
	if err := detectors.CheckWidth(sample, len(s.mean)); err != nil {
		return nil, err
	}

	out := make([]float64, len(sample))
	for i, x := range sample {
		out[i] = (x - s.mean[i]) / s.scale[i]
	}
	return out, nil
}
