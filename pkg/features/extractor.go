// Package features derives the fixed-width feature vector the theft
// classifier was trained on from a consumer's raw usage readings.
package features

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/theftguard/pkg/records"
)

// Vector is the derived feature set for one consumer.
type Vector struct {
	MeanUsage      float64 `json:"mean_usage"`
	StdUsage       float64 `json:"std_usage"`
	MinUsage       float64 `json:"min_usage"`
	MaxUsage       float64 `json:"max_usage"`
	UsageDrop      float64 `json:"usage_drop"`
	ZeroRatio      float64 `json:"zero_ratio"`
	AreaUsageRatio float64 `json:"AREA_USAGE_RATIO"`
}

// Slice returns the vector in SchemaV1 order.
func (v Vector) Slice() []float64 {
	return []float64{
		v.MeanUsage,
		v.StdUsage,
		v.MinUsage,
		v.MaxUsage,
		v.UsageDrop,
		v.ZeroRatio,
		v.AreaUsageRatio,
	}
}

// AreaRatioFunc computes a consumer's usage relative to its area.
type AreaRatioFunc func(row records.UsageRow) float64

// ConstantAreaRatio returns an AreaRatioFunc that ignores the row.
// The deployed model is fed a constant 1, i.e. no area comparison.
func ConstantAreaRatio(ratio float64) AreaRatioFunc {
	return func(records.UsageRow) float64 {
		return ratio
	}
}

// Extractor converts usage rows to feature vectors.
type Extractor struct {
	schema    Schema
	areaRatio AreaRatioFunc
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithAreaRatio replaces the constant area ratio.
func WithAreaRatio(f AreaRatioFunc) Option {
	return func(e *Extractor) {
		e.areaRatio = f
	}
}

// NewExtractor creates an extractor producing SchemaV1 vectors.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		schema:    SchemaV1,
		areaRatio: ConstantAreaRatio(1),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Schema returns the layout of vectors produced by Extract.
func (e *Extractor) Schema() Schema {
	return e.schema
}

// FeatureNames returns the names of extracted features.
func (e *Extractor) FeatureNames() []string {
	names := make([]string, len(e.schema.Names))
	copy(names, e.schema.Names)
	return names
}

// Extract coerces the row's readings and derives its feature vector.
// The second return value counts readings that were replaced by zero.
func (e *Extractor) Extract(row records.UsageRow) (Vector, int) {
	readings, coerced := Coerce(row.Readings)
	v := Compute(readings)
	v.AreaUsageRatio = e.areaRatio(row)
	return v, coerced
}

// Coerce parses every reading as a number. Blank, malformed and
// non-finite values become 0; the row keeps its width.
func Coerce(raw []string) ([]float64, int) {
	out := make([]float64, len(raw))
	coerced := 0

	for i, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			coerced++
			continue
		}
		out[i] = f
	}

	return out, coerced
}

// Compute derives the usage statistics over numeric readings.
// AreaUsageRatio is left at zero; Extract fills it in.
func Compute(readings []float64) Vector {
	n := len(readings)
	if n == 0 {
		return Vector{}
	}

	v := Vector{
		MeanUsage: stat.Mean(readings, nil),
		MinUsage:  floats.Min(readings),
		MaxUsage:  floats.Max(readings),
	}

	// Sample std and first differences are undefined below two readings.
	if n >= 2 {
		v.StdUsage = stat.StdDev(readings, nil)

		diffs := make([]float64, n-1)
		floats.SubTo(diffs, readings[1:], readings[:n-1])
		for i, d := range diffs {
			diffs[i] = math.Abs(d)
		}
		v.UsageDrop = stat.Mean(diffs, nil)
	}

	zeros := 0
	for _, r := range readings {
		if r == 0 {
			zeros++
		}
	}
	v.ZeroRatio = float64(zeros) / float64(n)

	return v
}
