package postgres

import (
	"context"
	"time"

	"gorm.io/gorm/clause"
)

// InsertStatRows writes a chunk's records, skipping any (period,
// symbol) pair already committed. The writer actor delivers rows
// at-least-once, so duplicates on re-flush are expected and ignored.
func (p *Client) InsertStatRows(ctx context.Context, records []StatRecord) error {
	if len(records) == 0 {
		return nil
	}
	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "period_start"},
			{Name: "symbol"},
		},
		DoNothing: true,
	}).Create(&records).Error
}

// GetStatRows returns the stored rows for a symbol, oldest first.
func (p *Client) GetStatRows(ctx context.Context, symbol string) ([]StatRecord, error) {
	var records []StatRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("period_start ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteOldStatRows removes rows whose period started before the
// given cutoff.
func (p *Client) DeleteOldStatRows(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("period_start < ?", before).
		Delete(&StatRecord{}).Error
}
