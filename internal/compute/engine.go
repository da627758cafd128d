package compute

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sentimentreality/internal/models"
)

type ScoredItemSource interface {
	ListScored(ctx context.Context, ticker, model string) ([]models.ScoredItem, error)
}

type PriceStore interface {
	ListPrices(ctx context.Context, ticker string) ([]models.PriceDaily, error)
	UpdateReturns(ctx context.Context, rows []models.PriceDaily) error
	ListReturns(ctx context.Context, ticker string) ([]models.SeriesPoint, error)
}

type AggregateStore interface {
	UpsertDaily(ctx context.Context, rows []models.DailyAgg) (int, error)
	ListDailySentiment(ctx context.Context, ticker string) ([]models.SeriesPoint, error)
	UpsertMetrics(ctx context.Context, rows []models.MetricWindowed) (int, error)
}

// Engine recomputes the derived tables of a ticker from what is stored.
// Every method fully overwrites its keys, so reruns converge.
type Engine struct {
	items  ScoredItemSource
	prices PriceStore
	aggs   AggregateStore
	model  string
	log    *zap.Logger
}

func NewEngine(items ScoredItemSource, prices PriceStore, aggs AggregateStore, model string, log *zap.Logger) *Engine {
	return &Engine{items: items, prices: prices, aggs: aggs, model: model, log: log}
}

// RecomputeReturns refreshes return_1d across the ticker's whole price history.
func (e *Engine) RecomputeReturns(ctx context.Context, ticker string) (int, error) {
	prices, err := e.prices.ListPrices(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("list prices: %w", err)
	}
	rows := DailyReturns(prices)
	if err := e.prices.UpdateReturns(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// RecomputeDaily rebuilds daily_agg from the scored items. No scored items means no writes.
func (e *Engine) RecomputeDaily(ctx context.Context, ticker string) (int, error) {
	items, err := e.items.ListScored(ctx, ticker, e.model)
	if err != nil {
		return 0, fmt.Errorf("list scored items: %w", err)
	}
	rows := AggregateDaily(ticker, items)
	if len(rows) == 0 {
		e.log.Info("No scored items to aggregate", zap.String("ticker", ticker))
		return 0, nil
	}
	return e.aggs.UpsertDaily(ctx, rows)
}

// RecomputeMetrics rebuilds every window of windowDays common dates.
func (e *Engine) RecomputeMetrics(ctx context.Context, ticker string, windowDays int) (int, error) {
	sentiment, err := e.aggs.ListDailySentiment(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("list daily sentiment: %w", err)
	}
	returns, err := e.prices.ListReturns(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("list returns: %w", err)
	}

	rows := AlignmentWindows(ticker, sentiment, returns, windowDays)
	if len(rows) == 0 {
		e.log.Info("Not enough common dates for metrics",
			zap.String("ticker", ticker),
			zap.Int("window_days", windowDays),
			zap.Int("sentiment_days", len(sentiment)),
			zap.Int("return_days", len(returns)),
		)
		return 0, nil
	}
	return e.aggs.UpsertMetrics(ctx, rows)
}
