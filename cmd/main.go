package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"sentimentreality/internal/bootstrap"
	"sentimentreality/internal/compute"
	"sentimentreality/internal/config"
	cronpkg "sentimentreality/internal/cron"
	"sentimentreality/internal/models"
	"sentimentreality/internal/pkg/httpclient"
	"sentimentreality/internal/provider"
	"sentimentreality/internal/repository"
	"sentimentreality/internal/router"
	"sentimentreality/internal/sentiment"
	"sentimentreality/internal/worker"
)

// maxArticleChars caps extracted article text before chunking.
const maxArticleChars = 20000

func main() {
	// --- Logger ---
	logger, err := newLogger(os.Getenv("APP_ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if hasArg("--bootstrap-db") {
		if err := runDBBootstrap(logger); err != nil {
			logger.Fatal("Database bootstrap failed", zap.Error(err))
		}
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.MigrateAndSeed(db, config.SeedTickers()); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}
	taskRepo := repository.NewTaskRepository(db)

	if args, ok := argsAfter("--enqueue"); ok {
		if err := runEnqueue(taskRepo, args, logger); err != nil {
			logger.Fatal("Failed to enqueue task", zap.Error(err))
		}
		return
	}

	// --- Pipeline ---
	pipeline, err := newPipeline(cfg, db, taskRepo, logger)
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}
	handlers := worker.Handlers(pipeline)

	// --- Ticker lock (Redis with in-memory fallback) ---
	var locker worker.Locker
	if cfg.Worker.TickerLock || cfg.Scheduler.Enabled {
		var lockErr error
		locker, lockErr = worker.NewLocker(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB)
		if lockErr != nil {
			logger.Warn("Redis unavailable for ticker locks, using in-memory fallback", zap.Error(lockErr))
		}
	}
	workerLocker := locker
	if !cfg.Worker.TickerLock {
		workerLocker = nil
	}

	if hasArg("--once") {
		w := worker.New(taskRepo, handlers, worker.Options{Name: "once", Locker: workerLocker, LockTTL: cfg.Worker.TickerLockTTL}, logger)
		found, err := w.RunOnce(context.Background())
		if err != nil && !errors.Is(err, worker.ErrTickerBusy) {
			logger.Fatal("Task processing failed", zap.Error(err))
		}
		logger.Info("Single run finished", zap.Bool("task_found", found))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Cron Scheduler ---
	var scheduler *cronpkg.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = cronpkg.New(cfg, taskRepo, locker, logger)
		if err := scheduler.Start(); err != nil {
			logger.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	// --- Echo ---
	var e *echo.Echo
	if cfg.Server.Enabled {
		e = echo.New()
		e.HideBanner = true
		router.Setup(e, db, logger, cfg.Server.APIKey)

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		go func() {
			logger.Info("Starting API server", zap.String("addr", addr))
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server stopped", zap.Error(err))
			}
		}()
	}

	// --- Workers ---
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		w := worker.New(taskRepo, handlers, worker.Options{
			Name:    fmt.Sprintf("worker-%d", i+1),
			Locker:  workerLocker,
			LockTTL: cfg.Worker.TickerLockTTL,
		}, logger)
		g.Go(func() error {
			return w.RunLoop(gctx, cfg.Worker.PollInterval)
		})
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	logger.Info("Shutting down...")

	if err := g.Wait(); err != nil {
		logger.Error("Worker exited with error", zap.Error(err))
	}

	// Stop cron
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	// Stop HTTP server
	if e != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}

	logger.Info("Worker exited")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

// argsAfter returns the positional arguments following flag.
func argsAfter(flag string) ([]string, bool) {
	for i, arg := range os.Args[1:] {
		if arg == flag {
			return os.Args[i+2:], true
		}
	}
	return nil, false
}

func runDBBootstrap(logger *zap.Logger) error {
	dbCfg, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	db, err := config.NewDatabase(dbCfg, logger)
	if err != nil {
		return err
	}
	if err := bootstrap.MigrateAndSeed(db, config.SeedTickers()); err != nil {
		return err
	}
	logger.Info("Schema migration and default seed completed")
	return nil
}

func runEnqueue(tasks *repository.TaskRepository, args []string, logger *zap.Logger) error {
	if len(args) == 0 {
		return errors.New("usage: --enqueue TYPE [TICKER]")
	}
	taskType := models.TaskType(args[0])
	ticker := ""
	if len(args) > 1 {
		ticker = args[1]
	}

	priority := models.PriorityDailyUpdateAll
	switch taskType {
	case models.TaskBackfillStock:
		priority = models.PriorityBackfill
	case models.TaskRefreshStock:
		priority = models.PriorityManualRefresh
	}

	task, err := tasks.Enqueue(context.Background(), taskType, ticker, priority)
	if err != nil {
		return err
	}
	logger.Info("Task queued",
		zap.String("task_id", task.ID),
		zap.String("task_type", string(task.TaskType)),
		zap.String("ticker", task.TickerValue()),
		zap.Int("priority", task.Priority),
	)
	return nil
}

func newPipeline(cfg *config.Config, db *gorm.DB, tasks *repository.TaskRepository, logger *zap.Logger) (*worker.Pipeline, error) {
	items := repository.NewItemRepository(db)
	prices := repository.NewPriceRepository(db)
	aggs := repository.NewAggregateRepository(db)

	scorer, err := newScorer(&cfg.Sentiment, logger)
	if err != nil {
		return nil, err
	}
	priceFeed, newsFeed, extractor, err := newProviders(&cfg.Providers, logger)
	if err != nil {
		return nil, err
	}

	return &worker.Pipeline{
		Items:     items,
		Prices:    prices,
		Stocks:    repository.NewStockRepository(db),
		Queue:     tasks,
		Compute:   compute.NewEngine(items, prices, aggs, cfg.Sentiment.Model, logger),
		Scorer:    scorer,
		PriceFeed: priceFeed,
		NewsFeed:  newsFeed,
		Extractor: extractor,
		Model:     cfg.Sentiment.Model,
		Cfg:       cfg.Pipeline,
		Log:       logger,
	}, nil
}

func newScorer(cfg *config.SentimentConfig, logger *zap.Logger) (*sentiment.Scorer, error) {
	var classifier sentiment.Classifier
	var tokenizer sentiment.Tokenizer = sentiment.WordTokenizer{}
	switch cfg.Backend {
	case "lexicon":
		classifier = sentiment.NewLexiconClassifier()
	case "inference":
		// Chunk budgets are counted in the model's own tokens.
		modelTokenizer, err := sentiment.LoadModelTokenizer(cfg.Tokenizer)
		if err != nil {
			return nil, err
		}
		tokenizer = modelTokenizer
		classifier = sentiment.NewLazyClassifier(func() (sentiment.Classifier, error) {
			if cfg.InferenceURL == "" {
				return nil, errors.New("SENTIMENT_INFERENCE_URL is not set")
			}
			client := httpclient.New().
				WithTimeout(60 * time.Second).
				WithRetries(2).
				WithBearerToken(cfg.APIToken)
			logger.Info("Sentiment model client ready", zap.String("url", cfg.InferenceURL))
			return sentiment.NewInferenceClassifier(client, cfg.InferenceURL, cfg.MaxTokens), nil
		})
	default:
		return nil, fmt.Errorf("unsupported SENTIMENT_BACKEND %q", cfg.Backend)
	}

	return sentiment.NewScorer(classifier, tokenizer, sentiment.Options{
		MaxTokens: cfg.MaxTokens,
		Overlap:   cfg.ChunkOverlap,
		MaxChunks: cfg.MaxChunks,
	}, logger)
}

func newProviders(cfg *config.ProviderConfig, logger *zap.Logger) (provider.PriceProvider, provider.NewsProvider, provider.TextExtractor, error) {
	client := httpclient.New().
		WithTimeout(cfg.Timeout).
		WithRetries(2).
		WithRateLimit(cfg.RequestsPerSec)

	var prices provider.PriceProvider
	switch cfg.Prices {
	case "yahoo":
		prices = provider.NewYahooPrices(client, cfg.YahooChartURL, logger)
	case "mock":
		prices = provider.NewMockPrices(time.Now)
	default:
		return nil, nil, nil, fmt.Errorf("unsupported PRICE_PROVIDER %q", cfg.Prices)
	}

	var news provider.NewsProvider
	switch cfg.News {
	case "mock":
		news = provider.NewMockNews(time.Now)
	case "yahoo_rss":
		news = provider.NewYahooRSS(client, cfg.YahooRSSURL)
	default:
		return nil, nil, nil, fmt.Errorf("unsupported NEWS_PROVIDER %q", cfg.News)
	}

	var extractor provider.TextExtractor = provider.NoopExtractor{}
	if cfg.ExtractText {
		extractor = provider.NewHTMLExtractor(client, maxArticleChars, logger)
	}

	return prices, news, extractor, nil
}
