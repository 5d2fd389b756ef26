// Package io provides input/output utilities for usage uploads and scored
// results.
package io

import (
	"context"
	"errors"

	"github.com/hed1ad/theftguard/pkg/records"
	"github.com/hed1ad/theftguard/pkg/scoring"
)

// ErrEmptyUpload is returned when a usage file has a header but no rows.
var ErrEmptyUpload = errors.New("usage file has no consumer rows")

// UsageReader reads uploaded usage rows.
type UsageReader interface {
	// Read returns every row.
	Read() ([]records.UsageRow, error)

	// Stream returns a channel of rows, closed at end of input or when ctx
	// is cancelled.
	Stream(ctx context.Context) (<-chan records.UsageRow, error)

	// Close releases resources.
	Close() error
}

// ResultWriter writes scored results.
type ResultWriter interface {
	// Write outputs a single result.
	Write(result scoring.Result) error

	// WriteAll outputs multiple results.
	WriteAll(results []scoring.Result) error

	// Close flushes and releases resources.
	Close() error
}
