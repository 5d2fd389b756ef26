package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hed1ad/theftguard/pkg/records"
)

// LoadConsumers reads the dashboard table from a CSV file.
func LoadConsumers(filename string) ([]records.ConsumerRecord, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	recs, err := ReadConsumers(file)
	if err != nil {
		return nil, fmt.Errorf("load consumers %s: %w", filename, err)
	}
	return recs, nil
}

// ReadConsumers parses a dashboard table. Columns are located by header name
// and may appear in any order. Any missing column or unparsable value fails
// the whole table.
func ReadConsumers(src io.Reader) ([]records.ConsumerRecord, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := col[h]; !dup {
			col[h] = i
		}
	}

	var missing []string
	for _, name := range records.RequiredConsumerColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	var recs []records.ConsumerRecord
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		line, _ := cr.FieldPos(0)
		get := func(name string) string {
			i := col[name]
			if i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		score, err := strconv.ParseFloat(get(records.ColRiskScore), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, records.ColRiskScore, err)
		}
		loss, err := strconv.ParseFloat(get(records.ColEstimatedLoss), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, records.ColEstimatedLoss, err)
		}

		rec := records.ConsumerRecord{
			ConsNo:        get(records.ColConsNo),
			AreaID:        get(records.ColAreaID),
			RiskScore:     score,
			RiskLevel:     records.RiskLevel(get(records.ColRiskLevel)),
			EstimatedLoss: loss,
			TheftReason:   get(records.ColTheftReason),
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}

	return recs, nil
}
