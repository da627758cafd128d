package provider

import (
	"context"
	"time"
)

// Price is one daily OHLCV bar.
type Price struct {
	Date     time.Time
	Open     *float64
	High     *float64
	Low      *float64
	Close    float64
	AdjClose float64
	Volume   *int64
}

// Headline is one raw news record.
type Headline struct {
	Source      string
	SourceID    string
	PublishedAt time.Time
	Title       string
	URL         string
	Snippet     string
}

// PriceProvider fetches daily bars. Failures are reported as errors and the
// caller continues with whatever it already has.
type PriceProvider interface {
	FetchDailyPrices(ctx context.Context, ticker string, days int) ([]Price, error)
}

type NewsProvider interface {
	FetchHeadlines(ctx context.Context, ticker string, days int) ([]Headline, error)
}

// TextExtractor turns an article URL into body text, or "" when nothing usable is found.
type TextExtractor interface {
	GetArticleText(ctx context.Context, url string) string
}

// NoopExtractor never extracts anything, leaving scoring to title and snippet.
type NoopExtractor struct{}

func (NoopExtractor) GetArticleText(context.Context, string) string { return "" }
