package repository

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sentimentreality/internal/models"
)

// AggregateRepository stores derived per-day sentiment and windowed alignment metrics.
type AggregateRepository struct {
	db *gorm.DB
}

func NewAggregateRepository(db *gorm.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// UpsertDaily replaces every column of the given (ticker, date) rows.
func (r *AggregateRepository) UpsertDaily(ctx context.Context, rows []models.DailyAgg) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ticker"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sentiment_avg", "article_count", "positive_count", "neutral_count", "negative_count",
			}),
		}).
		CreateInBatches(&rows, 200).Error
	if err != nil {
		return 0, fmt.Errorf("upsert daily aggregates: %w", err)
	}
	return len(rows), nil
}

// ListDaily returns the daily aggregates of ticker in date order, the last limit days when limit > 0.
func (r *AggregateRepository) ListDaily(ctx context.Context, ticker string, limit int) ([]models.DailyAgg, error) {
	var rows []models.DailyAgg
	q := r.db.WithContext(ctx).Where("ticker = ?", ticker).Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	slices.Reverse(rows)
	return rows, nil
}

// ListDailySentiment returns the mean sentiment per day for ticker in date order.
func (r *AggregateRepository) ListDailySentiment(ctx context.Context, ticker string) ([]models.SeriesPoint, error) {
	rows, err := r.ListDaily(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}
	points := make([]models.SeriesPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, models.SeriesPoint{Date: row.Date, Value: row.SentimentAvg})
	}
	return points, nil
}

// UpsertMetrics replaces the given (ticker, date_end, window_days) rows.
func (r *AggregateRepository) UpsertMetrics(ctx context.Context, rows []models.MetricWindowed) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ticker"}, {Name: "date_end"}, {Name: "window_days"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"corr", "directional_match", "alignment_score", "misalignment_days", "interpretation",
			}),
		}).
		CreateInBatches(&rows, 200).Error
	if err != nil {
		return 0, fmt.Errorf("upsert windowed metrics: %w", err)
	}
	return len(rows), nil
}

// ListMetrics returns the windowed metrics of ticker in date_end order, the last limit rows when limit > 0.
func (r *AggregateRepository) ListMetrics(ctx context.Context, ticker string, windowDays, limit int) ([]models.MetricWindowed, error) {
	var rows []models.MetricWindowed
	q := r.db.WithContext(ctx).
		Where("ticker = ? AND window_days = ?", ticker, windowDays).
		Order("date_end DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	slices.Reverse(rows)
	return rows, nil
}

