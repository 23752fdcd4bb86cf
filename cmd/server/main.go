package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"toolhub/internal/config"
	"toolhub/internal/events"
	"toolhub/internal/favorites"
	"toolhub/internal/favorites/kv"
	"toolhub/internal/gateway"
	"toolhub/internal/hackernews"
	"toolhub/internal/ratelimit"
	"toolhub/internal/server"
	"toolhub/internal/wallhaven"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("listen_addr", cfg.Server.ListenAddr).
		Str("store_backend", cfg.Store.Backend).
		Bool("redis_enabled", cfg.Redis.Addr != "").
		Msg("starting toolhub")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer backend.Close()

	gw := gateway.New(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
	})
	if !gw.Configured() {
		log.Warn().Msg("AIHUBMIX_API_KEY is not set, chat requests will be rejected")
	}

	hnOpts := []hackernews.Option{hackernews.WithLogger(log.Logger)}
	if cfg.HackerNews.SummaryModel != "" && gw.Configured() {
		hnOpts = append(hnOpts, hackernews.WithSummarizer(
			hackernews.NewChatSummarizer(gw, cfg.HackerNews.SummaryModel)))
	}

	opts := []server.Option{
		server.WithLogger(log.Logger),
		server.WithHackerNews(hackernews.New(hackernews.Config{
			BaseURL:     cfg.HackerNews.BaseURL,
			CacheTTL:    cfg.HackerNews.CacheTTL,
			Concurrency: cfg.HackerNews.Concurrency,
			MaxStories:  cfg.HackerNews.MaxStories,
		}, hnOpts...)),
		server.WithWallhaven(wallhaven.New(wallhaven.Config{
			BaseURL: cfg.Wallhaven.BaseURL,
			APIKey:  cfg.Wallhaven.APIKey,
			Timeout: cfg.Wallhaven.Timeout,
		})),
	}

	// Redis is optional: without it there is no rate limiting and no
	// change event stream, but the service still serves traffic.
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()

		if cfg.Rate.PerHour > 0 {
			opts = append(opts, server.WithLimiter(ratelimit.New(rdb, cfg.Rate.PerHour)))
		}

		stream := events.NewStream(rdb, cfg.Redis.EventStream, cfg.Redis.EventGroup, cfg.Redis.EventBlock)
		if err := stream.EnsureGroup(ctx); err != nil {
			log.Error().Err(err).Msg("failed to ensure event consumer group")
		}
		opts = append(opts, server.WithFavoritesOptions(favorites.WithPublisher(stream)))
	}

	srv := server.New(server.Config{Service: "toolhub"}, server.WrapClient(gw), backend, opts...)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

func openBackend(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return kv.NewMemory(), nil
	case config.StoreSQLite:
		return kv.OpenSQL(ctx, "sqlite", cfg.Store.DSN, cfg.Store.AutoMigrate, "migrations")
	case config.StorePostgres:
		return kv.OpenSQL(ctx, "postgres", cfg.Store.DSN, cfg.Store.AutoMigrate, "migrations")
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
