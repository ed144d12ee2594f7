package postgres

import "time"

// StatRecord is one symbol's computed statistics for one tick, stored
// durably in the database as a mirror of the CSV sink.
type StatRecord struct {
	ID uint `gorm:"primaryKey"`

	// A symbol produces at most one row per tick window.
	PeriodStart time.Time `gorm:"not null;index:idx_stat_period_symbol,unique"`
	Symbol      string    `gorm:"type:text;not null;index:idx_stat_symbol;index:idx_stat_period_symbol,unique"`

	Price     float64 `gorm:"type:numeric;not null"`
	PctChange float64 `gorm:"type:numeric;not null"`
	Min       float64 `gorm:"type:numeric;not null"`
	Max       float64 `gorm:"type:numeric;not null"`
	Avg       float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (StatRecord) TableName() string {
	return "stat_record"
}
