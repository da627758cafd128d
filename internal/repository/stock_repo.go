package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sentimentreality/internal/models"
)

type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// Track marks ticker as actively tracked, re-activating it if it was disabled.
func (r *StockRepository) Track(ctx context.Context, ticker string) error {
	row := models.TrackedStock{Ticker: ticker, IsActive: true}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("track %s: %w", ticker, err)
	}
	return nil
}

// Untrack keeps the row but excludes it from the daily fan-out.
func (r *StockRepository) Untrack(ctx context.Context, ticker string) error {
	return r.db.WithContext(ctx).Model(&models.TrackedStock{}).
		Where("ticker = ?", ticker).
		Update("is_active", false).Error
}

// ListActive returns active tickers in alphabetical order.
func (r *StockRepository) ListActive(ctx context.Context) ([]string, error) {
	var tickers []string
	err := r.db.WithContext(ctx).Model(&models.TrackedStock{}).
		Where("is_active = ?", true).
		Order("ticker ASC").
		Pluck("ticker", &tickers).Error
	return tickers, err
}
