package artifact

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/theftguard/pkg/detectors"
	"github.com/hed1ad/theftguard/pkg/detectors/forest"
	"github.com/hed1ad/theftguard/pkg/detectors/logistic"
	"github.com/hed1ad/theftguard/pkg/detectors/scaler"
	"github.com/hed1ad/theftguard/pkg/features"
)

func meta(kind string) detectors.Meta {
	return detectors.Meta{
		Kind:          kind,
		SchemaVersion: features.SchemaV1.Version,
		FeatureNames:  features.SchemaV1.Names,
		RunID:         "run-42",
	}
}

func scalerParams() scaler.Params {
	return scaler.Params{
		Mean:  []float64{6, 1, 0, 10, 0.5, 0.2, 1},
		Scale: []float64{2, 1, 1, 5, 2, 0.1, 1},
	}
}

func forestParams() forest.Params {
	return forest.Params{
		NFeatures: 7,
		Trees: []*forest.Node{
			{Feature: 5, Threshold: 0.3, Left: &forest.Node{Probability: 0.1}, Right: &forest.Node{Probability: 0.9}},
		},
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("model.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("MODEL.JSON"))
	assert.Equal(t, FormatGob, FormatFromPath("model.gob"))
	assert.Equal(t, FormatGob, FormatFromPath("model.bin"))
}

func TestSaveLoadNormalizer(t *testing.T) {
	for _, ext := range []string{".gob", ".json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scaler"+ext)
			require.NoError(t, Save(path, meta(scaler.Kind), scalerParams()))

			n, m, err := LoadNormalizer(path, features.SchemaV1)
			require.NoError(t, err)
			assert.Equal(t, "run-42", m.RunID)
			assert.Equal(t, scaler.Kind, m.Kind)

			out, err := n.Transform([]float64{10, 1, 0, 10, 2.5, 0.4, 1})
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float64{2, 0, 0, 0, 1, 2, 0}, out, 1e-12)
		})
	}
}

func TestSaveLoadClassifier(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		params   any
		wantProb float64
	}{
		{
			name:     "logistic",
			kind:     logistic.Kind,
			params:   logistic.Params{Weights: []float64{0, 0, 0, 0, 0, 0, 0}, Intercept: 0},
			wantProb: 0.5,
		},
		{
			name:     "forest",
			kind:     forest.Kind,
			params:   forestParams(),
			wantProb: 0.9,
		},
	}

	for _, tt := range tests {
		for _, ext := range []string{".gob", ".json"} {
			t.Run(tt.name+ext, func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "model"+ext)
				require.NoError(t, Save(path, meta(tt.kind), tt.params))

				c, m, err := LoadClassifier(path, features.SchemaV1)
				require.NoError(t, err)
				assert.Equal(t, tt.kind, m.Kind)

				p, err := c.Predict([]float64{0, 0, 0, 0, 0, 0.4, 0})
				require.NoError(t, err)
				assert.InDelta(t, tt.wantProb, p.Probability, 1e-12)
			})
		}
	}
}

func TestDecodeJSONExport(t *testing.T) {
	doc := `{
		"kind": "logistic_regression",
		"schema_version": "v1",
		"feature_names": ["mean_usage","std_usage","min_usage","max_usage","usage_drop","zero_ratio","AREA_USAGE_RATIO"],
		"params": {"weights": [0,0,0,0,1,0,0], "intercept": -1.5}
	}`

	c, m, err := DecodeClassifier(strings.NewReader(doc), FormatJSON, features.SchemaV1)
	require.NoError(t, err)
	assert.Empty(t, m.RunID)

	p, err := c.Predict([]float64{0, 0, 0, 0, 2.5, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, detectors.LabelTheft, p.Label)
}

func TestDecodeRejects(t *testing.T) {
	swapped := meta(scaler.Kind)
	swapped.FeatureNames = []string{"std_usage", "mean_usage", "min_usage", "max_usage", "usage_drop", "zero_ratio", "AREA_USAGE_RATIO"}

	narrow := scaler.Params{Mean: []float64{1, 2}, Scale: []float64{1, 1}}

	tests := []struct {
		name    string
		meta    detectors.Meta
		params  any
		wantErr error
	}{
		{"swapped feature order", swapped, scalerParams(), features.ErrSchemaMismatch},
		{"narrow params", meta(scaler.Kind), narrow, features.ErrSchemaMismatch},
		{"classifier as normalizer", meta(forest.Kind), forestParams(), ErrWrongRole},
		{"unknown kind", meta("svm"), scalerParams(), ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, FormatGob, tt.meta, tt.params))

			_, _, err := DecodeNormalizer(&buf, FormatGob, features.SchemaV1)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeClassifierRejectsScaler(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, meta(scaler.Kind), scalerParams()))

	_, _, err := DecodeClassifier(&buf, FormatJSON, features.SchemaV1)
	assert.ErrorIs(t, err, ErrWrongRole)
}

func TestLoadClassifierRejectsNaNLeaf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, Save(path, meta(forest.Kind), forest.Params{
		NFeatures: 7,
		Trees:     []*forest.Node{{Probability: math.NaN()}},
	}))

	_, _, err := LoadClassifier(path, features.SchemaV1)
	assert.Error(t, err)
}

func TestLoadMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()

	_, _, err := LoadClassifier(filepath.Join(dir, "absent.gob"), features.SchemaV1)
	assert.Error(t, err)

	corrupt := filepath.Join(dir, "corrupt.gob")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a gob stream"), 0o644))
	_, _, err = LoadNormalizer(corrupt, features.SchemaV1)
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.gob")
	require.NoError(t, Save(path, meta(scaler.Kind), scalerParams()))

	m, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, meta(scaler.Kind), m)
}
