package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sentimentreality/internal/models"
)

type PriceRepository struct {
	db *gorm.DB
}

func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// UpsertPrices stores daily bars keyed by (ticker, date). Returns are left to SetReturns.
func (r *PriceRepository) UpsertPrices(ctx context.Context, rows []models.PriceDaily) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "adj_close", "volume"}),
		}).
		CreateInBatches(&rows, 200).Error
	if err != nil {
		return 0, fmt.Errorf("upsert prices: %w", err)
	}
	return len(rows), nil
}

// ListPrices returns every stored bar of ticker in date order.
func (r *PriceRepository) ListPrices(ctx context.Context, ticker string) ([]models.PriceDaily, error) {
	var rows []models.PriceDaily
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

// UpdateReturns writes return_1d of each row in one transaction. A nil return clears it.
func (r *PriceRepository) UpdateReturns(ctx context.Context, rows []models.PriceDaily) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			err := tx.Model(&models.PriceDaily{}).
				Where("ticker = ? AND date = ?", row.Ticker, row.Date).
				Update("return_1d", row.Return1D).Error
			if err != nil {
				return fmt.Errorf("set return %s %s: %w", row.Ticker, row.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// ListReturns returns the non-null daily returns of ticker in date order.
func (r *PriceRepository) ListReturns(ctx context.Context, ticker string) ([]models.SeriesPoint, error) {
	var rows []models.PriceDaily
	err := r.db.WithContext(ctx).
		Select("date", "return_1d").
		Where("ticker = ? AND return_1d IS NOT NULL", ticker).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	points := make([]models.SeriesPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, models.SeriesPoint{Date: row.Date, Value: *row.Return1D})
	}
	return points, nil
}
