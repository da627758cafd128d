package models

import "time"

// DailyAgg holds per-day sentiment statistics for a ticker.
type DailyAgg struct {
	Ticker        string    `gorm:"column:ticker;primaryKey;size:16" json:"ticker"`
	Date          time.Time `gorm:"column:date;primaryKey;type:date" json:"date"`
	SentimentAvg  float64   `gorm:"column:sentiment_avg;not null" json:"sentiment_avg"`
	ArticleCount  int       `gorm:"column:article_count;not null" json:"article_count"`
	PositiveCount int       `gorm:"column:positive_count;not null" json:"positive_count"`
	NeutralCount  int       `gorm:"column:neutral_count;not null" json:"neutral_count"`
	NegativeCount int       `gorm:"column:negative_count;not null" json:"negative_count"`
}

func (DailyAgg) TableName() string {
	return "daily_agg"
}

// Alignment interpretations.
const (
	InterpretationAligned    = "Aligned"
	InterpretationNoisy      = "Noisy"
	InterpretationMisleading = "Misleading"
)

// MetricWindowed is one rolling-window alignment result.
type MetricWindowed struct {
	Ticker           string    `gorm:"column:ticker;primaryKey;size:16" json:"ticker"`
	DateEnd          time.Time `gorm:"column:date_end;primaryKey;type:date" json:"date_end"`
	WindowDays       int       `gorm:"column:window_days;primaryKey;autoIncrement:false" json:"window_days"`
	Corr             float64   `gorm:"column:corr;not null" json:"corr"`
	DirectionalMatch float64   `gorm:"column:directional_match;not null" json:"directional_match"`
	AlignmentScore   float64   `gorm:"column:alignment_score;not null" json:"alignment_score"`
	MisalignmentDays int       `gorm:"column:misalignment_days;not null" json:"misalignment_days"`
	Interpretation   string    `gorm:"column:interpretation;size:16;not null" json:"interpretation"`
}

func (MetricWindowed) TableName() string {
	return "metrics_windowed"
}

// SeriesPoint is one dated value of a per-day series (sentiment or return).
type SeriesPoint struct {
	Date  time.Time
	Value float64
}
