package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

var (
	ErrMissingStoreDSN   = errors.New("STORE_DSN is required for sqlite and postgres backends")
	ErrInvalidStoreKind  = errors.New("STORE_BACKEND must be 'memory', 'sqlite' or 'postgres'")
	ErrInvalidRateLimit  = errors.New("RATE_LIMIT_PER_HOUR must be >= 0")
	ErrMissingListenAddr = errors.New("LISTEN_ADDR is required")
)

type Config struct {
	Server     ServerConfig
	Gateway    GatewayConfig
	Store      StoreConfig
	Redis      RedisConfig
	Rate       RateConfig
	HackerNews HackerNewsConfig
	Wallhaven  WallhavenConfig
	Log        LogConfig
}

type ServerConfig struct {
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type StoreConfig struct {
	Backend     string
	DSN         string
	AutoMigrate bool
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	EventStream string
	EventGroup  string
	EventBlock  time.Duration
}

type RateConfig struct {
	PerHour int64
}

type HackerNewsConfig struct {
	BaseURL      string
	CacheTTL     time.Duration
	Concurrency  int
	MaxStories   int
	SummaryModel string
}

type WallhavenConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:        mustEnv("LISTEN_ADDR", ":8080"),
			ReadHeaderTimeout: mustDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ShutdownTimeout:   mustDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Gateway: GatewayConfig{
			BaseURL: mustEnv("AIHUBMIX_BASE_URL", "https://aihubmix.com/v1"),
			APIKey:  mustEnv("AIHUBMIX_API_KEY", ""),
			Timeout: mustDuration("AIHUBMIX_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(mustEnv("STORE_BACKEND", StoreSQLite)),
			DSN:         mustEnv("STORE_DSN", "file:toolhub.db"),
			AutoMigrate: mustBool("AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:        mustEnv("REDIS_ADDR", ""),
			Password:    mustEnv("REDIS_PASSWORD", ""),
			DB:          mustInt("REDIS_DB", 0),
			EventStream: mustEnv("EVENT_STREAM", "toolhub:favorites-events"),
			EventGroup:  mustEnv("EVENT_GROUP", "toolhub-consumers"),
			EventBlock:  mustDuration("EVENT_BLOCK", 5*time.Second),
		},
		Rate: RateConfig{
			PerHour: int64(mustInt("RATE_LIMIT_PER_HOUR", 60)),
		},
		HackerNews: HackerNewsConfig{
			BaseURL:     mustEnv("HN_API_BASE", "https://hacker-news.firebaseio.com/v0"),
			CacheTTL:    mustDuration("HN_CACHE_TTL", time.Hour),
			Concurrency: mustInt("HN_FETCH_CONCURRENCY", 8),
			MaxStories:  mustInt("HN_MAX_STORIES", 30),
			// Summaries stay off unless a model is named.
			SummaryModel: mustEnv("HN_SUMMARY_MODEL", ""),
		},
		Wallhaven: WallhavenConfig{
			BaseURL: mustEnv("WALLHAVEN_BASE_URL", "https://wallhaven.cc/api/v1"),
			APIKey:  mustEnv("WALLHAVEN_API_KEY", ""),
			Timeout: mustDuration("WALLHAVEN_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		},
	}

	if cfg.Server.ListenAddr == "" {
		return nil, ErrMissingListenAddr
	}
	switch cfg.Store.Backend {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if cfg.Store.DSN == "" {
			return nil, ErrMissingStoreDSN
		}
	default:
		return nil, fmt.Errorf("%w: got %q", ErrInvalidStoreKind, cfg.Store.Backend)
	}
	if cfg.Rate.PerHour < 0 {
		return nil, ErrInvalidRateLimit
	}

	return cfg, nil
}

func mustEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func mustInt(key string, def int) int {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustBool(key string, def bool) bool {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
