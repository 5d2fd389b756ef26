// Package artifact reads and writes pre-fitted model artifacts.
//
// An artifact is an envelope carrying the model kind, the feature schema it
// was fitted on, an optional training run id, and the kind-specific fitted
// parameters. Envelopes are stored as gob (".gob") or JSON (".json"); the
// parameters use the same encoding as their envelope.
package artifact

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hed1ad/theftguard/pkg/detectors"
	"github.com/hed1ad/theftguard/pkg/detectors/forest"
	"github.com/hed1ad/theftguard/pkg/detectors/logistic"
	"github.com/hed1ad/theftguard/pkg/detectors/scaler"
	"github.com/hed1ad/theftguard/pkg/features"
)

var (
	// ErrUnknownKind is returned for an artifact kind with no implementation.
	ErrUnknownKind = errors.New("unknown artifact kind")
	// ErrWrongRole is returned when a classifier is loaded as a normalizer
	// or vice versa.
	ErrWrongRole = errors.New("artifact has the wrong role")
)

// Format is an artifact encoding.
type Format string

const (
	FormatGob  Format = "gob"
	FormatJSON Format = "json"
)

// FormatFromPath picks the encoding from a file extension.
// Anything other than ".json" is treated as gob.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatGob
}

type envelope struct {
	Kind          string          `json:"kind"`
	SchemaVersion string          `json:"schema_version"`
	FeatureNames  []string        `json:"feature_names"`
	RunID         string          `json:"run_id,omitempty"`
	Params        json.RawMessage `json:"params"`
}

func marshal(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.Marshal(v)
	case FormatGob:
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func unmarshal(format Format, data []byte, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatGob:
		return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// Encode writes an artifact. params must be the Params of meta.Kind.
func Encode(w io.Writer, format Format, meta detectors.Meta, params any) error {
	raw, err := marshal(format, params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	data, err := marshal(format, envelope{
		Kind:          meta.Kind,
		SchemaVersion: meta.SchemaVersion,
		FeatureNames:  meta.FeatureNames,
		RunID:         meta.RunID,
		Params:        raw,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	_, err = w.Write(data)
	return err
}

// Save writes an artifact to path, choosing the format by extension.
func Save(path string, meta detectors.Meta, params any) error {
	var buf bytes.Buffer
	if err := Encode(&buf, FormatFromPath(path), meta, params); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func decode(r io.Reader, format Format) (detectors.Meta, json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return detectors.Meta{}, nil, err
	}

	var env envelope
	if err := unmarshal(format, data, &env); err != nil {
		return detectors.Meta{}, nil, fmt.Errorf("decode envelope: %w", err)
	}

	meta := detectors.Meta{
		Kind:          env.Kind,
		SchemaVersion: env.SchemaVersion,
		FeatureNames:  env.FeatureNames,
		RunID:         env.RunID,
	}
	return meta, env.Params, nil
}

// Inspect reads only the metadata of an artifact file.
func Inspect(path string) (detectors.Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return detectors.Meta{}, err
	}
	defer f.Close()

	meta, _, err := decode(f, FormatFromPath(path))
	return meta, err
}

// DecodeNormalizer reads a normalizer artifact and validates it against schema.
func DecodeNormalizer(r io.Reader, format Format, schema features.Schema) (detectors.Normalizer, detectors.Meta, error) {
	meta, raw, err := decode(r, format)
	if err != nil {
		return nil, meta, err
	}
	if err := schema.Validate(meta.SchemaVersion, meta.FeatureNames); err != nil {
		return nil, meta, err
	}

	var n detectors.Normalizer
	switch meta.Kind {
	case scaler.Kind:
		var p scaler.Params
		if err := unmarshal(format, raw, &p); err != nil {
			return nil, meta, fmt.Errorf("decode %s params: %w", meta.Kind, err)
		}
		n, err = scaler.New(p)
	case logistic.Kind, forest.Kind:
		return nil, meta, fmt.Errorf("%w: %s is a classifier", ErrWrongRole, meta.Kind)
	default:
		return nil, meta, fmt.Errorf("%w: %q", ErrUnknownKind, meta.Kind)
	}
	if err != nil {
		return nil, meta, err
	}

	if err := checkWidth(n.Width(), schema); err != nil {
		return nil, meta, err
	}
	return n, meta, nil
}

// DecodeClassifier reads a classifier artifact and validates it against schema.
func DecodeClassifier(r io.Reader, format Format, schema features.Schema) (detectors.Classifier, detectors.Meta, error) {
	meta, raw, err := decode(r, format)
	if err != nil {
		return nil, meta, err
	}
	if err := schema.Validate(meta.SchemaVersion, meta.FeatureNames); err != nil {
		return nil, meta, err
	}

	var c detectors.Classifier
	switch meta.Kind {
	case logistic.Kind:
		var p logistic.Params
		if err := unmarshal(format, raw, &p); err != nil {
			return nil, meta, fmt.Errorf("decode %s params: %w", meta.Kind, err)
		}
		c, err = logistic.New(p)
	case forest.Kind:
		var p forest.Params
		if err := unmarshal(format, raw, &p); err != nil {
			return nil, meta, fmt.Errorf("decode %s params: %w", meta.Kind, err)
		}
		c, err = forest.New(p)
	case scaler.Kind:
		return nil, meta, fmt.Errorf("%w: %s is a normalizer", ErrWrongRole, meta.Kind)
	default:
		return nil, meta, fmt.Errorf("%w: %q", ErrUnknownKind, meta.Kind)
	}
	if err != nil {
		return nil, meta, err
	}

	if err := checkWidth(c.Width(), schema); err != nil {
		return nil, meta, err
	}
	return c, meta, nil
}

// LoadNormalizer opens and decodes a normalizer artifact file.
func LoadNormalizer(path string, schema features.Schema) (detectors.Normalizer, detectors.Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, detectors.Meta{}, err
	}
	defer f.Close()

	n, meta, err := DecodeNormalizer(f, FormatFromPath(path), schema)
	if err != nil {
		return nil, meta, fmt.Errorf("load normalizer %s: %w", path, err)
	}
	return n, meta, nil
}

// LoadClassifier opens and decodes a classifier artifact file.
func LoadClassifier(path string, schema features.Schema) (detectors.Classifier, detectors.Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, detectors.Meta{}, err
	}
	defer f.Close()

	c, meta, err := DecodeClassifier(f, FormatFromPath(path), schema)
	if err != nil {
		return nil, meta, fmt.Errorf("load classifier %s: %w", path, err)
	}
	return c, meta, nil
}

func checkWidth(width int, schema features.Schema) error {
	if width != len(schema.Names) {
		return fmt.Errorf("%w: fitted on %d features, schema has %d",
			features.ErrSchemaMismatch, width, len(schema.Names))
	}
	return nil
}
