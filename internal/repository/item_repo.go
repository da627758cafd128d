package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sentimentreality/internal/models"
)

// ItemRepository stores ingested articles and their sentiment scores.
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// InsertItems stores new articles, skipping any (source, url) already present.
// It returns how many rows were actually inserted.
func (r *ItemRepository) InsertItems(ctx context.Context, items []models.Item) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	// Collapse duplicates inside the batch so a single insert never conflicts with itself.
	seen := make(map[string]bool, len(items))
	unique := make([]models.Item, 0, len(items))
	for _, it := range items {
		if it.URL == "" || it.Source == "" {
			continue
		}
		key := it.Source + "\x00" + it.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, it)
	}
	if len(unique) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "url"}},
			DoNothing: true,
		}).
		CreateInBatches(&unique, 200)
	if res.Error != nil {
		return 0, fmt.Errorf("insert items: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListUnscored returns the newest items of ticker that have no score under model.
func (r *ItemRepository) ListUnscored(ctx context.Context, ticker, model string, limit int) ([]models.Item, error) {
	var items []models.Item
	q := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Joins("LEFT JOIN item_scores ON item_scores.item_id = items.id AND item_scores.model = ?", model).
		Where("items.ticker = ? AND item_scores.item_id IS NULL", ticker).
		Order("items.published_at DESC").
		Order("items.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&items).Error
	return items, err
}

// InsertScore writes a score once per (item_id, model). Existing scores are left untouched.
func (r *ItemRepository) InsertScore(ctx context.Context, score *models.ItemScore) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "model"}},
			DoNothing: true,
		}).
		Create(score)
	if res.Error != nil {
		return false, fmt.Errorf("insert score for item %d: %w", score.ItemID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListScored joins items with their scores for model in (published_at, id) order.
func (r *ItemRepository) ListScored(ctx context.Context, ticker, model string) ([]models.ScoredItem, error) {
	var rows []models.ScoredItem
	err := r.db.WithContext(ctx).
		Table("items").
		Select("items.id AS item_id, items.published_at, item_scores.sentiment_label, item_scores.sentiment_score").
		Joins("JOIN item_scores ON item_scores.item_id = items.id AND item_scores.model = ?", model).
		Where("items.ticker = ?", ticker).
		Order("items.published_at ASC").
		Order("items.id ASC").
		Scan(&rows).Error
	return rows, err
}
