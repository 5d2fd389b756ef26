// Package scoring runs uploaded usage rows through feature extraction,
// normalization and classification.
package scoring

import (
	"errors"
	"fmt"

	"github.com/hed1ad/theftguard/pkg/detectors"
	"github.com/hed1ad/theftguard/pkg/features"
	"github.com/hed1ad/theftguard/pkg/records"
)

// ErrRunMismatch is returned when the normalizer and classifier come from
// different training runs.
var ErrRunMismatch = errors.New("normalizer and classifier come from different training runs")

// Result is the scored outcome for one uploaded row.
type Result struct {
	ConsNo          string               `json:"cons_no"`
	AreaID          string               `json:"area_id"`
	Features        features.Vector      `json:"features"`
	Prediction      detectors.Prediction `json:"prediction"`
	Confidence      float64              `json:"confidence"`
	Verdict         string               `json:"verdict"`
	CoercedReadings int                  `json:"coerced_readings"`
}

// Scorer is safe for concurrent use; it holds only immutable state.
type Scorer struct {
	extractor  *features.Extractor
	normalizer detectors.Normalizer
	classifier detectors.Classifier
	runID      string
}

// New pairs an extractor with a pre-fitted normalizer and classifier.
// Both artifacts must match the extractor's schema and, when both record a
// training run id, the same run.
func New(extractor *features.Extractor, normalizer detectors.Normalizer, normMeta detectors.Meta,
	classifier detectors.Classifier, clfMeta detectors.Meta) (*Scorer, error) {
	schema := extractor.Schema()

	if err := schema.Validate(normMeta.SchemaVersion, normMeta.FeatureNames); err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	if err := schema.Validate(clfMeta.SchemaVersion, clfMeta.FeatureNames); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if normalizer.Width() != len(schema.Names) || classifier.Width() != len(schema.Names) {
		return nil, fmt.Errorf("%w: normalizer width %d, classifier width %d, schema width %d",
			features.ErrSchemaMismatch, normalizer.Width(), classifier.Width(), len(schema.Names))
	}
	if normMeta.RunID != "" && clfMeta.RunID != "" && normMeta.RunID != clfMeta.RunID {
		return nil, fmt.Errorf("%w: %q vs %q", ErrRunMismatch, normMeta.RunID, clfMeta.RunID)
	}

	runID := clfMeta.RunID
	if runID == "" {
		runID = normMeta.RunID
	}

	return &Scorer{
		extractor:  extractor,
		normalizer: normalizer,
		classifier: classifier,
		runID:      runID,
	}, nil
}

// RunID returns the training run the artifacts were produced by, if known.
func (s *Scorer) RunID() string {
	return s.runID
}

// Schema returns the feature layout the scorer feeds its model.
func (s *Scorer) Schema() features.Schema {
	return s.extractor.Schema()
}

// Score derives features for a row, normalizes them and classifies.
func (s *Scorer) Score(row records.UsageRow) (Result, error) {
	v, coerced := s.extractor.Extract(row)

	x, err := s.normalizer.Transform(v.Slice())
	if err != nil {
		return Result{}, fmt.Errorf("normalize %s: %w", row.ConsNo, err)
	}

	p, err := s.classifier.Predict(x)
	if err != nil {
		return Result{}, fmt.Errorf("predict %s: %w", row.ConsNo, err)
	}

	return Result{
		ConsNo:          row.ConsNo,
		AreaID:          row.AreaID,
		Features:        v,
		Prediction:      p,
		Confidence:      p.Confidence(),
		Verdict:         Verdict(p),
		CoercedReadings: coerced,
	}, nil
}

// ScoreAll scores every row, stopping at the first error.
func (s *Scorer) ScoreAll(rows []records.UsageRow) ([]Result, error) {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		r, err := s.Score(row)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Verdict renders a prediction the way staff see it.
func Verdict(p detectors.Prediction) string {
	if p.Label == detectors.LabelTheft {
		return fmt.Sprintf("Theft Risk Detected (Confidence: %.2f)", p.Confidence())
	}
	return fmt.Sprintf("Normal Usage (Confidence: %.2f)", p.Confidence())
}
