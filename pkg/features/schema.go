package features

import (
	"errors"
	"fmt"
)

// ErrSchemaMismatch is returned when a model artifact was fitted on a
// different feature layout than the extractor produces.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Feature names, in vector order.
const (
	MeanUsage      = "mean_usage"
	StdUsage       = "std_usage"
	MinUsage       = "min_usage"
	MaxUsage       = "max_usage"
	UsageDrop      = "usage_drop"
	ZeroRatio      = "zero_ratio"
	AreaUsageRatio = "AREA_USAGE_RATIO"
)

// Width is the number of features in a vector.
const Width = 7

// Schema binds feature names to vector positions.
type Schema struct {
	Version string
	Names   []string
}

// SchemaV1 is the layout the deployed classifier was trained on.
var SchemaV1 = Schema{
	Version: "v1",
	Names: []string{
		MeanUsage,
		StdUsage,
		MinUsage,
		MaxUsage,
		UsageDrop,
		ZeroRatio,
		AreaUsageRatio,
	},
}

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int {
	for i, n := range s.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Validate checks that an artifact's version and feature names match the
// schema exactly, position by position.
func (s Schema) Validate(version string, names []string) error {
	if version != s.Version {
		return fmt.Errorf("%w: schema version %q, want %q", ErrSchemaMismatch, version, s.Version)
	}
	if len(names) != len(s.Names) {
		return fmt.Errorf("%w: %d features, want %d", ErrSchemaMismatch, len(names), len(s.Names))
	}
	for i, n := range names {
		if n != s.Names[i] {
			return fmt.Errorf("%w: position %d is %q, want %q", ErrSchemaMismatch, i, n, s.Names[i])
		}
	}
	return nil
}
