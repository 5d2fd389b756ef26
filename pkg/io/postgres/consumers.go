// Package postgres loads the dashboard consumer table from PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hed1ad/theftguard/pkg/records"
)

// Consumer maps the consumers table.
type Consumer struct {
	ConsNo        string  `gorm:"column:cons_no;primaryKey"`
	AreaID        string  `gorm:"column:area_id"`
	RiskScore     float64 `gorm:"column:risk_score"`
	RiskLevel     string  `gorm:"column:risk_level"`
	EstimatedLoss float64 `gorm:"column:estimated_loss"`
	TheftReason   string  `gorm:"column:theft_reason"`
}

func (Consumer) TableName() string { return "consumers" }

// Record converts a table row to a dashboard record.
func (c Consumer) Record() records.ConsumerRecord {
	return records.ConsumerRecord{
		ConsNo:        c.ConsNo,
		AreaID:        c.AreaID,
		RiskScore:     c.RiskScore,
		RiskLevel:     records.RiskLevel(c.RiskLevel),
		EstimatedLoss: c.EstimatedLoss,
		TheftReason:   c.TheftReason,
	}
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// LoadConsumers reads every consumer once, in cons_no order. A single invalid
// row fails the whole load.
func LoadConsumers(ctx context.Context, db *gorm.DB) ([]records.ConsumerRecord, error) {
	if err := CheckColumns(db.WithContext(ctx).Migrator()); err != nil {
		return nil, err
	}

	var rows []Consumer
	if err := db.WithContext(ctx).Order("cons_no").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query consumers: %w", err)
	}

	return ToRecords(rows)
}

// ColumnChecker reports whether a model's table has a column.
// gorm.Migrator satisfies it.
type ColumnChecker interface {
	HasColumn(dst interface{}, field string) bool
}

// CheckColumns fails when the consumers table lacks any required column.
// Find would otherwise leave the missing fields zero-valued.
func CheckColumns(m ColumnChecker) error {
	var missing []string
	for _, col := range records.RequiredConsumerColumns {
		name := strings.ToLower(col)
		if !m.HasColumn(&Consumer{}, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: consumers table lacks %s", records.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// ToRecords converts and validates table rows.
func ToRecords(rows []Consumer) ([]records.ConsumerRecord, error) {
	recs := make([]records.ConsumerRecord, 0, len(rows))
	for _, row := range rows {
		rec := row.Record()
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
