package worker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sentimentreality/internal/config"
	"sentimentreality/internal/models"
	"sentimentreality/internal/provider"
	"sentimentreality/internal/sentiment"
)

type ItemStore interface {
	InsertItems(ctx context.Context, items []models.Item) (int64, error)
	ListUnscored(ctx context.Context, ticker, model string, limit int) ([]models.Item, error)
	InsertScore(ctx context.Context, score *models.ItemScore) (bool, error)
}

type PriceStore interface {
	UpsertPrices(ctx context.Context, rows []models.PriceDaily) (int, error)
}

type StockLister interface {
	ListActive(ctx context.Context) ([]string, error)
}

type TaskEnqueuer interface {
	EnqueueMany(ctx context.Context, specs []models.TaskSpec) ([]models.Task, error)
}

// Recomputer rebuilds the derived tables of one ticker.
type Recomputer interface {
	RecomputeReturns(ctx context.Context, ticker string) (int, error)
	RecomputeDaily(ctx context.Context, ticker string) (int, error)
	RecomputeMetrics(ctx context.Context, ticker string, windowDays int) (int, error)
}

type TextScorer interface {
	ScoreText(ctx context.Context, text string) sentiment.Score
}

// ScoreSummary reports one scoring pass.
type ScoreSummary struct {
	Ticker        string `json:"ticker"`
	Selected      int    `json:"selected"`
	Scored        int    `json:"scored"`
	SkippedNoText int    `json:"skipped_no_text"`
	Errors        int    `json:"errors"`
}

// Pipeline implements the per-task-type handlers. It holds no per-task state.
type Pipeline struct {
	Items     ItemStore
	Prices    PriceStore
	Stocks    StockLister
	Queue     TaskEnqueuer
	Compute   Recomputer
	Scorer    TextScorer
	PriceFeed provider.PriceProvider
	NewsFeed  provider.NewsProvider
	Extractor provider.TextExtractor
	Model     string
	Cfg       config.PipelineConfig
	Log       *zap.Logger
}

type stageWindow struct {
	priceDays  int
	keepPrices int
	newsDays   int
	scoreLimit int
}

// Backfill loads a newly tracked ticker's history and computes everything derived from it.
func (p *Pipeline) Backfill(ctx context.Context, ticker string) error {
	return p.run(ctx, "backfill", ticker, stageWindow{
		priceDays:  p.Cfg.BackfillDays,
		newsDays:   p.Cfg.BackfillDays,
		scoreLimit: p.Cfg.BackfillScoreLimit,
	})
}

// Refresh pulls the last few days for a ticker and recomputes derived tables.
func (p *Pipeline) Refresh(ctx context.Context, ticker string) error {
	return p.run(ctx, "refresh", ticker, stageWindow{
		priceDays:  p.Cfg.RefreshPriceDays,
		keepPrices: p.Cfg.RefreshKeepPrices,
		newsDays:   p.Cfg.RefreshNewsDays,
		scoreLimit: p.Cfg.RefreshScoreLimit,
	})
}

// DailyUpdateAll fans out one REFRESH_STOCK per active ticker in a single transaction.
func (p *Pipeline) DailyUpdateAll(ctx context.Context) error {
	tickers, err := p.Stocks.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tickers: %w", err)
	}
	if len(tickers) == 0 {
		p.Log.Info("No active tickers to refresh")
		return nil
	}

	specs := make([]models.TaskSpec, 0, len(tickers))
	for _, t := range tickers {
		specs = append(specs, models.TaskSpec{
			Type:     models.TaskRefreshStock,
			Ticker:   t,
			Priority: models.PriorityDailyRefresh,
		})
	}
	if _, err := p.Queue.EnqueueMany(ctx, specs); err != nil {
		return err
	}
	p.Log.Info("Queued daily refresh", zap.Int("tickers", len(tickers)))
	return nil
}

func (p *Pipeline) run(ctx context.Context, kind, ticker string, w stageWindow) error {
	log := p.Log.With(zap.String("task", kind), zap.String("ticker", ticker))

	prices, err := p.ingestPrices(ctx, ticker, w.priceDays, w.keepPrices, log)
	if err != nil {
		return err
	}
	if _, err := p.Compute.RecomputeReturns(ctx, ticker); err != nil {
		return fmt.Errorf("recompute returns: %w", err)
	}

	items, err := p.ingestNews(ctx, ticker, w.newsDays, log)
	if err != nil {
		return err
	}

	summary, err := p.ScoreUnscored(ctx, ticker, w.scoreLimit)
	if err != nil {
		return err
	}

	days, err := p.Compute.RecomputeDaily(ctx, ticker)
	if err != nil {
		return fmt.Errorf("recompute daily aggregates: %w", err)
	}

	windows, err := p.Compute.RecomputeMetrics(ctx, ticker, p.Cfg.WindowDays)
	if err != nil {
		return fmt.Errorf("recompute metrics: %w", err)
	}

	log.Info("Pipeline finished",
		zap.Int("prices", prices),
		zap.Int64("new_items", items),
		zap.Any("scoring", summary),
		zap.Int("daily_rows", days),
		zap.Int("metric_windows", windows),
	)
	return nil
}

// ingestPrices stores fetched bars. A failing provider is logged and skipped.
func (p *Pipeline) ingestPrices(ctx context.Context, ticker string, days, keep int, log *zap.Logger) (int, error) {
	bars, err := p.PriceFeed.FetchDailyPrices(ctx, ticker, days)
	if err != nil {
		log.Warn("Price fetch failed, continuing without new prices", zap.Error(err))
		return 0, nil
	}
	if keep > 0 && len(bars) > keep {
		bars = bars[len(bars)-keep:]
	}

	rows := make([]models.PriceDaily, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, models.PriceDaily{
			Ticker:   ticker,
			Date:     b.Date,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			AdjClose: b.AdjClose,
			Volume:   b.Volume,
		})
	}
	n, err := p.Prices.UpsertPrices(ctx, rows)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ingestNews stores fetched headlines, deduplicated by (source, url).
func (p *Pipeline) ingestNews(ctx context.Context, ticker string, days int, log *zap.Logger) (int64, error) {
	headlines, err := p.NewsFeed.FetchHeadlines(ctx, ticker, days)
	if err != nil {
		log.Warn("News fetch failed, continuing without new items", zap.Error(err))
		return 0, nil
	}

	items := make([]models.Item, 0, len(headlines))
	for _, h := range headlines {
		items = append(items, models.Item{
			Ticker:      ticker,
			Source:      h.Source,
			SourceID:    h.SourceID,
			PublishedAt: h.PublishedAt.UTC(),
			Title:       h.Title,
			URL:         h.URL,
			Snippet:     h.Snippet,
		})
	}
	return p.Items.InsertItems(ctx, items)
}

// ScoreUnscored scores up to limit of the newest items without a score for the
// configured model. Per-item failures are counted, not returned.
func (p *Pipeline) ScoreUnscored(ctx context.Context, ticker string, limit int) (ScoreSummary, error) {
	summary := ScoreSummary{Ticker: ticker}

	items, err := p.Items.ListUnscored(ctx, ticker, p.Model, limit)
	if err != nil {
		return summary, fmt.Errorf("list unscored items: %w", err)
	}
	summary.Selected = len(items)

	for i := range items {
		switch p.scoreItem(ctx, &items[i]) {
		case itemScored:
			summary.Scored++
		case itemNoText:
			summary.SkippedNoText++
		default:
			summary.Errors++
		}
	}
	return summary, nil
}

type itemOutcome int

const (
	itemScored itemOutcome = iota
	itemNoText
	itemFailed
)

func (p *Pipeline) scoreItem(ctx context.Context, item *models.Item) (outcome itemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.Log.Error("Scoring item panicked", zap.Uint("item_id", item.ID), zap.Any("panic", r))
			outcome = itemFailed
		}
	}()

	text := ArticleText(ctx, p.Extractor, item)
	if text == "" {
		return itemNoText
	}

	score := p.Scorer.ScoreText(ctx, text)
	_, err := p.Items.InsertScore(ctx, &models.ItemScore{
		ItemID:         item.ID,
		Model:          p.Model,
		SentimentLabel: score.Label,
		SentimentScore: score.Score,
		Confidence:     score.Confidence,
		ChunksUsed:     score.ChunksUsed,
	})
	if err != nil {
		p.Log.Warn("Storing item score failed", zap.Uint("item_id", item.ID), zap.Error(err))
		return itemFailed
	}
	return itemScored
}

// ArticleText prefers the extracted body and falls back to title and snippet.
func ArticleText(ctx context.Context, extractor provider.TextExtractor, item *models.Item) string {
	if extractor != nil {
		if text := strings.TrimSpace(extractor.GetArticleText(ctx, item.URL)); text != "" {
			return text
		}
	}
	text := item.Title
	if item.Snippet != "" {
		text += "\n\n" + item.Snippet
	}
	return strings.TrimSpace(text)
}
