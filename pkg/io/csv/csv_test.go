package csv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/theftguard/pkg/detectors"
	"github.com/hed1ad/theftguard/pkg/features"
	"github.com/hed1ad/theftguard/pkg/records"
	"github.com/hed1ad/theftguard/pkg/scoring"
)

const usageCSV = `CONS_NO,AREA_ID,2014-01-01,2014-01-02,2014-01-03,2014-01-04,2014-01-05
C100,A7,10,10,10,0,0
C200,A7,,3.5,bad,4
`

func TestReaderRead(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader(usageCSV))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"2014-01-01", "2014-01-02", "2014-01-03", "2014-01-04", "2014-01-05"}, r.ReadingColumns())

	rows, err := r.Read()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, records.UsageRow{
		ConsNo:   "C100",
		AreaID:   "A7",
		Readings: []string{"10", "10", "10", "0", "0"},
	}, rows[0])

	// Short rows are padded to the header width.
	assert.Equal(t, []string{"", "3.5", "bad", "4", ""}, rows[1].Readings)
}

func TestReaderRejectsLongRow(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("CONS_NO,AREA_ID,d1\nC1,A1,1,2\n"))
	require.NoError(t, err)

	_, err = r.Read()
	assert.Error(t, err)
}

func TestReaderHeaderErrors(t *testing.T) {
	_, err := NewReaderFrom(strings.NewReader(""))
	assert.Error(t, err)

	_, err = NewReaderFrom(strings.NewReader("CONS_NO\nC1\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReaderWithoutHeader(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("C1,A1,1,2,3\nC2,A1,4\n"), WithHeader(false))
	require.NoError(t, err)

	rows, err := r.Read()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"4", "", ""}, rows[1].Readings)
}

func TestReaderOnlyIdentifierColumns(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("CONS_NO,AREA_ID\nC1,A1\n"))
	require.NoError(t, err)

	rows, err := r.Read()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Readings)
}

func TestNewReaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.csv")
	require.NoError(t, os.WriteFile(path, []byte(usageCSV), 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	rows, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.NoError(t, r.Close())

	_, err = NewReader(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestReaderStream(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader(usageCSV))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := r.Stream(ctx)
	require.NoError(t, err)

	var got []string
	for row := range ch {
		got = append(got, row.ConsNo)
	}
	assert.Equal(t, []string{"C100", "C200"}, got)
	assert.NoError(t, r.Err())
}

func TestReaderStreamStopsOnMalformed(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("CONS_NO,AREA_ID,d1\nC1,A1,1\nC2,A1,1,2\nC3,A1,3\n"))
	require.NoError(t, err)

	ch, err := r.Stream(context.Background())
	require.NoError(t, err)

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, 1, n)
	assert.Error(t, r.Err())
}

const consumersCSV = `AREA_ID,CONS_NO,risk_score,risk_level,estimated_loss,theft_reason,extra
A1,C1,0.91,High,1200.5,"Sudden drop, then zeros",x
A2,C2,0.10,Low,0,Stable profile,y
`

func TestReadConsumers(t *testing.T) {
	recs, err := ReadConsumers(strings.NewReader(consumersCSV))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, records.ConsumerRecord{
		ConsNo:        "C1",
		AreaID:        "A1",
		RiskScore:     0.91,
		RiskLevel:     records.RiskHigh,
		EstimatedLoss: 1200.5,
		TheftReason:   "Sudden drop, then zeros",
	}, recs[0])
}

func TestReadConsumersErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrMissingColumn},
		{"missing reason", "CONS_NO,AREA_ID,risk_score,risk_level,estimated_loss\nC1,A1,0.1,Low,1\n", ErrMissingColumn},
		{"bad score", "CONS_NO,AREA_ID,risk_score,risk_level,estimated_loss,theft_reason\nC1,A1,high,Low,1,r\n", nil},
		{"negative loss", "CONS_NO,AREA_ID,risk_score,risk_level,estimated_loss,theft_reason\nC1,A1,0.1,Low,-5,r\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := ReadConsumers(strings.NewReader(tt.input))
			assert.Nil(t, recs)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadConsumers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff"+consumersCSV), 0o644))

	recs, err := LoadConsumers(path)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	res := scoring.Result{
		ConsNo:     "C100",
		AreaID:     "A7",
		Features:   features.Vector{MeanUsage: 6, StdUsage: 2, MaxUsage: 10, UsageDrop: 2.5, ZeroRatio: 0.4, AreaUsageRatio: 1},
		Prediction: detectors.Prediction{Label: detectors.LabelTheft, Probability: 0.75},
		Confidence: 0.75,
		Verdict:    "Theft Risk Detected (Confidence: 0.75)",
	}
	require.NoError(t, w.WriteAll([]scoring.Result{res}))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(ResultHeader(), ","), lines[0])
	assert.Equal(t, "C100,A7,6,2,0,10,2.5,0.4,1,theft,0.75,0.75,Theft Risk Detected (Confidence: 0.75)", lines[1])
}
