// Package records defines the consumer and usage rows shared by the
// dashboard and the scoring pipeline.
package records

import (
	"errors"
	"fmt"
	"math"
)

// RiskLevel is the upstream risk bucket attached to a consumer.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Column names of the dashboard table.
const (
	ColConsNo        = "CONS_NO"
	ColAreaID        = "AREA_ID"
	ColRiskScore     = "risk_score"
	ColRiskLevel     = "risk_level"
	ColEstimatedLoss = "estimated_loss"
	ColTheftReason   = "theft_reason"
)

// ErrMissingColumn is returned when a consumer or usage table lacks a
// required column.
var ErrMissingColumn = errors.New("missing required column")

// RequiredConsumerColumns lists the columns a dashboard table must carry.
var RequiredConsumerColumns = []string{
	ColConsNo,
	ColAreaID,
	ColRiskScore,
	ColRiskLevel,
	ColEstimatedLoss,
	ColTheftReason,
}

// ConsumerRecord is one row of the precomputed dashboard table.
type ConsumerRecord struct {
	ConsNo        string    `json:"cons_no"`
	AreaID        string    `json:"area_id"`
	RiskScore     float64   `json:"risk_score"`
	RiskLevel     RiskLevel `json:"risk_level"`
	EstimatedLoss float64   `json:"estimated_loss"`
	TheftReason   string    `json:"theft_reason"`
}

// InspectionPriority is risk score weighted by estimated loss.
func (c ConsumerRecord) InspectionPriority() float64 {
	return c.RiskScore * c.EstimatedLoss
}

// UsageRow is one uploaded consumer with raw per-interval readings.
// Readings are kept as text; coercion happens during feature extraction.
type UsageRow struct {
	ConsNo   string   `json:"cons_no"`
	AreaID   string   `json:"area_id"`
	Readings []string `json:"readings"`
}

// Validate checks the numeric fields of a dashboard row.
func (c ConsumerRecord) Validate() error {
	if math.IsNaN(c.RiskScore) || math.IsInf(c.RiskScore, 0) {
		return fmt.Errorf("consumer %s: risk_score is not finite", c.ConsNo)
	}
	if math.IsNaN(c.EstimatedLoss) || math.IsInf(c.EstimatedLoss, 0) {
		return fmt.Errorf("consumer %s: estimated_loss is not finite", c.ConsNo)
	}
	if c.EstimatedLoss < 0 {
		return fmt.Errorf("consumer %s: estimated_loss %v is negative", c.ConsNo, c.EstimatedLoss)
	}
	return nil
}
