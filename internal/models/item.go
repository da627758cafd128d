package models

import "time"

// Sentiment labels stored on item scores.
const (
	LabelPositive = "POSITIVE"
	LabelNeutral  = "NEUTRAL"
	LabelNegative = "NEGATIVE"
)

// Item is one ingested news article, deduplicated by (source, url).
type Item struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Ticker      string    `gorm:"column:ticker;size:16;not null;index:idx_items_ticker_published,priority:1" json:"ticker"`
	Source      string    `gorm:"column:source;size:100;not null;uniqueIndex:idx_items_source_url,priority:1" json:"source"`
	SourceID    string    `gorm:"column:source_id;size:255" json:"source_id"`
	PublishedAt time.Time `gorm:"column:published_at;not null;index:idx_items_ticker_published,priority:2" json:"published_at"`
	Title       string    `gorm:"column:title;type:text" json:"title"`
	URL         string    `gorm:"column:url;size:512;not null;uniqueIndex:idx_items_source_url,priority:2" json:"url"`
	Snippet     string    `gorm:"column:snippet;type:text" json:"snippet"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Item) TableName() string {
	return "items"
}

// ItemScore is the sentiment result for one item under one model version.
// Written at most once per (item_id, model).
type ItemScore struct {
	ItemID         uint      `gorm:"column:item_id;primaryKey;autoIncrement:false" json:"item_id"`
	Model          string    `gorm:"column:model;primaryKey;size:64" json:"model"`
	SentimentLabel string    `gorm:"column:sentiment_label;size:16;not null" json:"sentiment_label"`
	SentimentScore float64   `gorm:"column:sentiment_score;not null" json:"sentiment_score"`
	Confidence     float64   `gorm:"column:confidence;not null" json:"confidence"`
	ChunksUsed     int       `gorm:"column:chunks_used;not null;default:0" json:"chunks_used"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ItemScore) TableName() string {
	return "item_scores"
}

// ScoredItem is the join of an item with its score, as read by the daily aggregator.
type ScoredItem struct {
	ItemID         uint
	PublishedAt    time.Time
	SentimentLabel string
	SentimentScore float64
}
