package csv

import (
	"encoding/csv"
	"io"
	"strconv"

	tgio "github.com/hed1ad/theftguard/pkg/io"
	"github.com/hed1ad/theftguard/pkg/features"
	"github.com/hed1ad/theftguard/pkg/records"
	"github.com/hed1ad/theftguard/pkg/scoring"
)

// Writer writes scored results as CSV, one row per consumer.
type Writer struct {
	writer        *csv.Writer
	headerWritten bool
}

var _ tgio.ResultWriter = (*Writer)(nil)

// NewWriter creates a result writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{writer: csv.NewWriter(w)}
}

// ResultHeader returns the column names written by Writer.
func ResultHeader() []string {
	h := []string{records.ColConsNo, records.ColAreaID}
	h = append(h, features.SchemaV1.Names...)
	return append(h, "label", "probability", "confidence", "verdict")
}

// Write outputs a single result.
func (w *Writer) Write(result scoring.Result) error {
	if !w.headerWritten {
		if err := w.writer.Write(ResultHeader()); err != nil {
			return err
		}
		w.headerWritten = true
	}

	row := []string{result.ConsNo, result.AreaID}
	for _, f := range result.Features.Slice() {
		row = append(row, formatFloat(f))
	}
	row = append(row,
		result.Prediction.Label.String(),
		formatFloat(result.Prediction.Probability),
		formatFloat(result.Confidence),
		result.Verdict,
	)
	return w.writer.Write(row)
}

// WriteAll outputs multiple results.
func (w *Writer) WriteAll(results []scoring.Result) error {
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes buffered output.
func (w *Writer) Close() error {
	w.writer.Flush()
	return w.writer.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
