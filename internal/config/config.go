package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Worker    WorkerConfig
	Scheduler SchedulerConfig
	Sentiment SentimentConfig
	Providers ProviderConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Enabled bool
	Port    int
	Env     string // "development", "production"
	APIKey  string
}

type DatabaseConfig struct {
	Driver  string // "mysql", "postgres", "sqlite"
	URL     string // postgres URL, overrides the discrete fields
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
	SSLMode string
	Path    string // sqlite file

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type WorkerConfig struct {
	PollInterval  time.Duration
	Concurrency   int
	TickerLock    bool
	TickerLockTTL time.Duration
	StaleAfter    time.Duration // 0 disables the stale RUNNING sweep
}

type SchedulerConfig struct {
	Enabled          bool
	DailyUpdateSpec  string // robfig/cron spec with seconds
	StaleSweepSpec   string
	DailyUpdateDedup time.Duration
}

type SentimentConfig struct {
	Model        string // model version stored on item_scores
	Backend      string // "inference", "lexicon"
	Tokenizer    string // tokenizer.json path or hub model id, inference backend only
	InferenceURL string
	APIToken     string
	MaxTokens    int
	ChunkOverlap int
	MaxChunks    int
}

type ProviderConfig struct {
	Prices         string // "yahoo", "mock"
	News           string // "mock", "yahoo_rss"
	ExtractText    bool
	RequestsPerSec float64
	Timeout        time.Duration
	YahooChartURL  string
	YahooRSSURL    string
}

type PipelineConfig struct {
	BackfillDays       int
	BackfillScoreLimit int
	RefreshPriceDays   int
	RefreshKeepPrices  int
	RefreshNewsDays    int
	RefreshScoreLimit  int
	WindowDays         int
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Enabled: viper.GetBool("API_ENABLED"),
			Port:    viper.GetInt("APP_PORT"),
			Env:     viper.GetString("APP_ENV"),
			APIKey:  viper.GetString("API_KEY"),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Worker: WorkerConfig{
			PollInterval:  viper.GetDuration("WORKER_POLL_INTERVAL"),
			Concurrency:   viper.GetInt("WORKER_CONCURRENCY"),
			TickerLock:    viper.GetBool("WORKER_TICKER_LOCK"),
			TickerLockTTL: viper.GetDuration("WORKER_TICKER_LOCK_TTL"),
			StaleAfter:    viper.GetDuration("WORKER_STALE_AFTER"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          viper.GetBool("SCHEDULER_ENABLED"),
			DailyUpdateSpec:  viper.GetString("SCHEDULE_DAILY_UPDATE"),
			StaleSweepSpec:   viper.GetString("SCHEDULE_STALE_SWEEP"),
			DailyUpdateDedup: viper.GetDuration("SCHEDULE_DAILY_DEDUP"),
		},
		Sentiment: SentimentConfig{
			Model:        viper.GetString("SENTIMENT_MODEL"),
			Backend:      viper.GetString("SENTIMENT_BACKEND"),
			Tokenizer:    viper.GetString("SENTIMENT_TOKENIZER"),
			InferenceURL: viper.GetString("SENTIMENT_INFERENCE_URL"),
			APIToken:     viper.GetString("SENTIMENT_API_TOKEN"),
			MaxTokens:    viper.GetInt("SENTIMENT_MAX_TOKENS"),
			ChunkOverlap: viper.GetInt("SENTIMENT_CHUNK_OVERLAP"),
			MaxChunks:    viper.GetInt("SENTIMENT_MAX_CHUNKS"),
		},
		Providers: ProviderConfig{
			Prices:         viper.GetString("PRICE_PROVIDER"),
			News:           viper.GetString("NEWS_PROVIDER"),
			ExtractText:    viper.GetBool("ARTICLE_EXTRACTION"),
			RequestsPerSec: viper.GetFloat64("PROVIDER_RATE_LIMIT"),
			Timeout:        viper.GetDuration("PROVIDER_TIMEOUT"),
			YahooChartURL:  viper.GetString("YAHOO_CHART_URL"),
			YahooRSSURL:    viper.GetString("YAHOO_RSS_URL"),
		},
		Pipeline: PipelineConfig{
			BackfillDays:       viper.GetInt("BACKFILL_DAYS"),
			BackfillScoreLimit: viper.GetInt("BACKFILL_SCORE_LIMIT"),
			RefreshPriceDays:   viper.GetInt("REFRESH_PRICE_DAYS"),
			RefreshKeepPrices:  viper.GetInt("REFRESH_KEEP_PRICES"),
			RefreshNewsDays:    viper.GetInt("REFRESH_NEWS_DAYS"),
			RefreshScoreLimit:  viper.GetInt("REFRESH_SCORE_LIMIT"),
			WindowDays:         viper.GetInt("METRICS_WINDOW_DAYS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Sentiment.Backend == "inference" && cfg.Sentiment.APIToken == "" {
		log.Println("WARNING: SENTIMENT_API_TOKEN is not set")
	}

	return cfg, nil
}

// LoadDatabaseOnly loads just the database section, used by --bootstrap-db.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	setDefaults()

	db := loadDatabase()
	if err := db.Validate(); err != nil {
		return nil, err
	}
	return &db, nil
}

func setDefaults() {
	viper.SetDefault("API_ENABLED", true)
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")

	viper.SetDefault("DB_DRIVER", "mysql")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "sentiment.db")
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 50)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "1h")

	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("WORKER_POLL_INTERVAL", "10s")
	viper.SetDefault("WORKER_CONCURRENCY", 1)
	viper.SetDefault("WORKER_TICKER_LOCK", true)
	viper.SetDefault("WORKER_TICKER_LOCK_TTL", "30m")
	viper.SetDefault("WORKER_STALE_AFTER", "0s")

	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("SCHEDULE_DAILY_UPDATE", "0 30 22 * * 1-5")
	viper.SetDefault("SCHEDULE_STALE_SWEEP", "0 */5 * * * *")
	viper.SetDefault("SCHEDULE_DAILY_DEDUP", "20h")

	viper.SetDefault("SENTIMENT_MODEL", "hf_fin_v1")
	viper.SetDefault("SENTIMENT_BACKEND", "lexicon")
	viper.SetDefault("SENTIMENT_INFERENCE_URL", "https://api-inference.huggingface.co/models/mrm8488/distilroberta-finetuned-financial-news-sentiment-analysis")
	viper.SetDefault("SENTIMENT_TOKENIZER", "distilroberta-base")
	viper.SetDefault("SENTIMENT_MAX_TOKENS", 512)
	viper.SetDefault("SENTIMENT_CHUNK_OVERLAP", 64)
	viper.SetDefault("SENTIMENT_MAX_CHUNKS", 6)

	viper.SetDefault("PRICE_PROVIDER", "yahoo")
	viper.SetDefault("NEWS_PROVIDER", "mock")
	viper.SetDefault("ARTICLE_EXTRACTION", false)
	viper.SetDefault("PROVIDER_RATE_LIMIT", 2.0)
	viper.SetDefault("PROVIDER_TIMEOUT", "30s")
	viper.SetDefault("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart")
	viper.SetDefault("YAHOO_RSS_URL", "https://feeds.finance.yahoo.com/rss/2.0/headline")

	viper.SetDefault("BACKFILL_DAYS", 90)
	viper.SetDefault("BACKFILL_SCORE_LIMIT", 100)
	viper.SetDefault("REFRESH_PRICE_DAYS", 5)
	viper.SetDefault("REFRESH_KEEP_PRICES", 3)
	viper.SetDefault("REFRESH_NEWS_DAYS", 3)
	viper.SetDefault("REFRESH_SCORE_LIMIT", 50)
	viper.SetDefault("METRICS_WINDOW_DAYS", 7)
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Driver:          strings.ToLower(viper.GetString("DB_DRIVER")),
		URL:             viper.GetString("DATABASE_URL"),
		Host:            viper.GetString("DB_HOST"),
		Port:            viper.GetString("DB_PORT"),
		Name:            viper.GetString("DB_NAME"),
		User:            viper.GetString("DB_USER"),
		Pass:            viper.GetString("DB_PASS"),
		Charset:         viper.GetString("DB_CHARSET"),
		SSLMode:         viper.GetString("DB_SSLMODE"),
		Path:            viper.GetString("DB_PATH"),
		MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
		MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
		ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
	}
}

// Validate checks the settings the worker cannot run without.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}
	if c.Worker.Concurrency < 1 {
		c.Worker.Concurrency = 1
	}
	if c.Sentiment.MaxTokens <= 0 {
		return fmt.Errorf("SENTIMENT_MAX_TOKENS must be positive")
	}
	if c.Sentiment.ChunkOverlap < 0 || c.Sentiment.ChunkOverlap >= c.Sentiment.MaxTokens {
		return fmt.Errorf("SENTIMENT_CHUNK_OVERLAP must be in [0, SENTIMENT_MAX_TOKENS)")
	}
	if c.Pipeline.WindowDays < 2 {
		return fmt.Errorf("METRICS_WINDOW_DAYS must be at least 2")
	}
	return nil
}

// Validate checks that the selected driver has what it needs to connect.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "mysql":
		if d.Name == "" {
			return fmt.Errorf("DB_NAME is not set")
		}
	case "postgres":
		if d.URL == "" && d.Name == "" {
			return fmt.Errorf("DATABASE_URL or DB_NAME is not set")
		}
	case "sqlite":
		if d.Path == "" {
			return fmt.Errorf("DB_PATH is not set")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		if d.URL != "" {
			return d.URL
		}
		port := d.Port
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Pass),
			Host:     d.Host + ":" + port,
			Path:     "/" + d.Name,
			RawQuery: "sslmode=" + d.SSLMode,
		}
		return u.String()
	case "sqlite":
		return d.Path
	default:
		port := d.Port
		if port == "" {
			port = "3306"
		}
		return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=UTC"
	}
}

// SeedTickers returns the comma-separated SEED_TICKERS list that bootstrap marks as tracked.
func SeedTickers() []string {
	var out []string
	for _, t := range strings.Split(viper.GetString("SEED_TICKERS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
