// Package dashboard computes the aggregate risk view over the consumer table:
// filtering, headline figures, per-area breakdown and ranked lists.
package dashboard

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/hed1ad/theftguard/pkg/records"
)

// DefaultInspectionLimit is the length of the inspection priority list.
const DefaultInspectionLimit = 10

// NoExplanationNotice is shown when a consumer has no stored reason.
const NoExplanationNotice = "No data available for selected consumer"

// Snapshot is an immutable view over consumer records. Every method returns
// fresh slices, so a Snapshot can be shared across requests without locking.
type Snapshot struct {
	records []records.ConsumerRecord
}

// NewSnapshot copies recs into a new snapshot.
func NewSnapshot(recs []records.ConsumerRecord) *Snapshot {
	cp := make([]records.ConsumerRecord, len(recs))
	copy(cp, recs)
	return &Snapshot{records: cp}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Records returns a copy of the records in table order.
func (s *Snapshot) Records() []records.ConsumerRecord {
	cp := make([]records.ConsumerRecord, len(s.records))
	copy(cp, s.records)
	return cp
}

// Options lists the values a filter can select, in first-appearance order.
type Options struct {
	Areas       []string            `json:"areas"`
	RiskLevels  []records.RiskLevel `json:"risk_levels"`
	ConsumerIDs []string            `json:"consumer_ids"`
}

// Options returns the distinct areas, risk levels and consumer ids.
func (s *Snapshot) Options() Options {
	opts := Options{
		Areas:       []string{},
		RiskLevels:  []records.RiskLevel{},
		ConsumerIDs: []string{},
	}
	seenArea := map[string]bool{}
	seenLevel := map[records.RiskLevel]bool{}
	seenID := map[string]bool{}

	for _, r := range s.records {
		if !seenArea[r.AreaID] {
			seenArea[r.AreaID] = true
			opts.Areas = append(opts.Areas, r.AreaID)
		}
		if !seenLevel[r.RiskLevel] {
			seenLevel[r.RiskLevel] = true
			opts.RiskLevels = append(opts.RiskLevels, r.RiskLevel)
		}
		if !seenID[r.ConsNo] {
			seenID[r.ConsNo] = true
			opts.ConsumerIDs = append(opts.ConsumerIDs, r.ConsNo)
		}
	}
	return opts
}

// Filter selects records by area and risk level. A nil slice selects every
// value; a non-nil empty slice selects none. Both conditions must hold.
type Filter struct {
	Areas      []string
	RiskLevels []records.RiskLevel
}

func (f Filter) match(r records.ConsumerRecord) bool {
	if f.Areas != nil && !slices.Contains(f.Areas, r.AreaID) {
		return false
	}
	if f.RiskLevels != nil && !slices.Contains(f.RiskLevels, r.RiskLevel) {
		return false
	}
	return true
}

// Apply returns a snapshot holding the matching records, in table order.
func (s *Snapshot) Apply(f Filter) *Snapshot {
	out := make([]records.ConsumerRecord, 0, len(s.records))
	for _, r := range s.records {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return &Snapshot{records: out}
}

// Summary holds the headline figures.
type Summary struct {
	TotalConsumers     int   `json:"total_consumers"`
	HighRiskCases      int   `json:"high_risk_cases"`
	TotalEstimatedLoss int64 `json:"total_estimated_loss"`
	AreasMonitored     int   `json:"areas_monitored"`
}

// Summary computes the headline figures. Total loss is truncated to an
// integer amount.
func (s *Snapshot) Summary() Summary {
	var loss float64
	areas := map[string]struct{}{}
	high := 0

	for _, r := range s.records {
		loss += r.EstimatedLoss
		areas[r.AreaID] = struct{}{}
		if r.RiskLevel == records.RiskHigh {
			high++
		}
	}

	return Summary{
		TotalConsumers:     len(s.records),
		HighRiskCases:      high,
		TotalEstimatedLoss: int64(loss),
		AreasMonitored:     len(areas),
	}
}

// AreaSummary aggregates one area.
type AreaSummary struct {
	AreaID        string  `json:"area_id"`
	MeanRiskScore float64 `json:"mean_risk_score"`
	TotalLoss     float64 `json:"total_loss"`
	Consumers     int     `json:"consumers"`
}

// ByArea returns the mean risk score and summed loss per area, ordered by
// area id.
func (s *Snapshot) ByArea() []AreaSummary {
	idx := map[string]int{}
	out := []AreaSummary{}
	scoreSums := []float64{}

	for _, r := range s.records {
		i, ok := idx[r.AreaID]
		if !ok {
			i = len(out)
			idx[r.AreaID] = i
			out = append(out, AreaSummary{AreaID: r.AreaID})
			scoreSums = append(scoreSums, 0)
		}
		out[i].Consumers++
		out[i].TotalLoss += r.EstimatedLoss
		scoreSums[i] += r.RiskScore
	}

	for i := range out {
		out[i].MeanRiskScore = scoreSums[i] / float64(out[i].Consumers)
	}

	slices.SortFunc(out, func(a, b AreaSummary) int {
		return compareIDs(a.AreaID, b.AreaID)
	})
	return out
}

// HighPriority returns the High risk records ordered by estimated loss,
// largest first.
func (s *Snapshot) HighPriority() []records.ConsumerRecord {
	out := []records.ConsumerRecord{}
	for _, r := range s.records {
		if r.RiskLevel == records.RiskHigh {
			out = append(out, r)
		}
	}

	slices.SortStableFunc(out, func(a, b records.ConsumerRecord) int {
		return cmp.Compare(b.EstimatedLoss, a.EstimatedLoss)
	})
	return out
}

// PriorityEntry is one row of the inspection list.
type PriorityEntry struct {
	ConsNo             string  `json:"cons_no"`
	AreaID             string  `json:"area_id"`
	InspectionPriority float64 `json:"inspection_priority"`
}

// InspectionPriority ranks records by risk score times estimated loss,
// largest first, and keeps the top limit entries.
func (s *Snapshot) InspectionPriority(limit int) []PriorityEntry {
	if limit < 0 {
		limit = 0
	}

	out := make([]PriorityEntry, len(s.records))
	for i, r := range s.records {
		out[i] = PriorityEntry{
			ConsNo:             r.ConsNo,
			AreaID:             r.AreaID,
			InspectionPriority: r.InspectionPriority(),
		}
	}

	slices.SortStableFunc(out, func(a, b PriorityEntry) int {
		return cmp.Compare(b.InspectionPriority, a.InspectionPriority)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Explain returns the stored theft reason for a consumer. The first
// matching record wins.
func (s *Snapshot) Explain(consNo string) (string, bool) {
	for _, r := range s.records {
		if r.ConsNo == consNo {
			return r.TheftReason, true
		}
	}
	return "", false
}

// compareIDs orders numeric ids numerically and everything else lexically,
// numbers first.
func compareIDs(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)

	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(fa, fb); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
