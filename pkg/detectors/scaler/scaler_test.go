package scaler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/theftguard/pkg/detectors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid", Params{Mean: []float64{1, 2}, Scale: []float64{1, 0.5}}, false},
		{"empty", Params{}, true},
		{"length mismatch", Params{Mean: []float64{1, 2}, Scale: []float64{1}}, true},
		{"zero scale", Params{Mean: []float64{1}, Scale: []float64{0}}, true},
		{"negative scale", Params{Mean: []float64{1}, Scale: []float64{-2}}, true},
		{"nan mean", Params{Mean: []float64{math.NaN()}, Scale: []float64{1}}, true},
		{"inf scale", Params{Mean: []float64{0}, Scale: []float64{math.Inf(1)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.params.Mean), s.Width())
		})
	}
}

func TestTransform(t *testing.T) {
	s, err := New(Params{Mean: []float64{6, 0, 1}, Scale: []float64{2, 1, 4}})
	require.NoError(t, err)

	got, err := s.Transform([]float64{10, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 0}, got)

	_, err = s.Transform([]float64{1, 2})
	assert.ErrorIs(t, err, detectors.ErrWidth)
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	s := Identity(2)
	in := []float64{5, 7}

	out, err := s.Transform(in)
	require.NoError(t, err)
	out[0] = 100

	assert.Equal(t, []float64{5, 7}, in)
}

func TestParamsIsCopy(t *testing.T) {
	mean := []float64{1, 2}
	s, err := New(Params{Mean: mean, Scale: []float64{1, 1}})
	require.NoError(t, err)

	mean[0] = 99
	p := s.Params()
	assert.Equal(t, []float64{1, 2}, p.Mean)

	p.Mean[1] = 42
	assert.Equal(t, []float64{1, 2}, s.Params().Mean)
}
