package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Ops       OpsConfig
	Logging   LoggingConfig
	LLM       LLMConfig
	Feeds     FeedsConfig
	Cron      CronConfig
	Broadcast BroadcastConfig
	Pipeline  PipelineConfig
}

// DatabaseConfig holds the persistent store connection parameters.
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnectTimeout     time.Duration
}

// RedisConfig points at the queue substrate.
type RedisConfig struct {
	URL string
}

// OpsConfig holds the operational HTTP listener parameters (/healthz, /metrics).
type OpsConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// LLMConfig selects the chat-completions endpoint and models. The primary
// endpoint is an Ollama-compatible server; DeepSeek is the hosted fallback.
type LLMConfig struct {
	BaseURL     string // OLLAMA_BASE_URL
	APIKey      string // OLLAMA_API_KEY
	DeepSeekKey string // DEEPSEEK_API_KEY, used when no base URL is set
	ModelFast   string
	ModelBackup string
	Timeout     time.Duration
	Temperature float32
}

// Provider reports which backend the config resolves to.
func (c LLMConfig) Provider() string {
	if c.BaseURL != "" {
		return "ollama"
	}
	if c.DeepSeekKey != "" {
		return "deepseek"
	}
	return "none"
}

// FeedsConfig carries per-source credentials. Missing credentials disable the
// adapter (it logs and returns nothing), they are never a startup error.
type FeedsConfig struct {
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
	YouTubeAPIKey      string
	ProductHuntKey     string
	ProductHuntSecret  string
	NewsAPIKey         string
}

// CronConfig holds the trigger schedules.
type CronConfig struct {
	IngestPattern   string // default "0 */2 * * *"
	BriefingPattern string // default "0 5 * * *"
}

// BroadcastConfig points at the SSE broadcast collaborator.
type BroadcastConfig struct {
	Endpoint  string // POST target, e.g. http://localhost:3000/api/sse/broadcast
	JWTSecret string
}

// PipelineConfig tunes queue workers and fetch behavior.
type PipelineConfig struct {
	WorkerConcurrency int
	MaxAttempts       int
	FetchTimeout      time.Duration // snapshot HTTP fetch
	SnapshotDedup     time.Duration // identical-hash reuse window
	SweepInterval     time.Duration // fan-in recovery sweeper
	BriefingTopN      int
}

const (
	defaultOpsPort         = "9090"
	defaultShutdownTimeout = 30 * time.Second
	defaultLogFormat       = "json"
	defaultLLMTimeout      = 60 * time.Second
	defaultFetchTimeout    = 15 * time.Second
	defaultSnapshotDedup   = 6 * time.Hour
	defaultSweepInterval   = 10 * time.Minute
	defaultIngestPattern   = "0 */2 * * *"
	defaultBriefingPattern = "0 5 * * *"
)

// Load reads configuration from the environment, applying defaults when
// values are not provided. A .env file in the working directory is honored
// for local development; its absence is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Database: DatabaseConfig{
			URL:                os.Getenv("DATABASE_URL"),
			MaxConnections:     25,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    5 * time.Minute,
			ConnectTimeout:     10 * time.Second,
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Ops: OpsConfig{
			Port:            getEnv("OPS_PORT", defaultOpsPort),
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		LLM: LLMConfig{
			BaseURL:     os.Getenv("OLLAMA_BASE_URL"),
			APIKey:      os.Getenv("OLLAMA_API_KEY"),
			DeepSeekKey: os.Getenv("DEEPSEEK_API_KEY"),
			ModelFast:   getEnv("LLM_MODEL_FAST", "qwen2.5:14b"),
			ModelBackup: getEnv("LLM_MODEL_BACKUP", "deepseek-chat"),
			Timeout:     defaultLLMTimeout,
			Temperature: 0.2,
		},
		Feeds: FeedsConfig{
			RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "observatory/1.0"),
			YouTubeAPIKey:      os.Getenv("YOUTUBE_API_KEY"),
			ProductHuntKey:     os.Getenv("PRODUCTHUNT_API_KEY"),
			ProductHuntSecret:  os.Getenv("PRODUCTHUNT_API_SECRET"),
			NewsAPIKey:         os.Getenv("NEWSAPI_KEY"),
		},
		Cron: CronConfig{
			IngestPattern:   getEnv("INGEST_CRON", defaultIngestPattern),
			BriefingPattern: getEnv("BRIEFING_CRON", defaultBriefingPattern),
		},
		Broadcast: BroadcastConfig{
			Endpoint:  getEnv("BROADCAST_ENDPOINT", "http://localhost:3000/api/sse/broadcast"),
			JWTSecret: os.Getenv("BROADCAST_JWT_SECRET"),
		},
		Pipeline: PipelineConfig{
			WorkerConcurrency: 4,
			MaxAttempts:       5,
			FetchTimeout:      defaultFetchTimeout,
			SnapshotDedup:     defaultSnapshotDedup,
			SweepInterval:     defaultSweepInterval,
			BriefingTopN:      5,
		},
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS: %w", err)
		}
		if d < 30*time.Second {
			return Config{}, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS: must be at least 30")
		}
		cfg.LLM.Timeout = d
	}

	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid WORKER_CONCURRENCY: must be a positive integer")
		}
		cfg.Pipeline.WorkerConcurrency = n
	}

	if v := os.Getenv("BRIEFING_TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid BRIEFING_TOP_N: must be a positive integer")
		}
		cfg.Pipeline.BriefingTopN = n
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
