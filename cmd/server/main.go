package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ledgerdesk/backend/internal/cache"
	"ledgerdesk/backend/internal/commission"
	"ledgerdesk/backend/internal/config"
	"ledgerdesk/backend/internal/httpapi"
	"ledgerdesk/backend/internal/logging"
	"ledgerdesk/backend/internal/service"
	"ledgerdesk/backend/internal/store"
	"ledgerdesk/backend/internal/store/memory"
	"ledgerdesk/backend/internal/store/sqlstore"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("invalid logging configuration: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}
	calc, err := commission.New(cfg.CommissionMode)
	if err != nil {
		logger.Fatal("invalid commission mode", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("repository unavailable", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	closers = append(closers, repo.Close)
	logger.Info("repository ready", zap.String("driver", cfg.DBDriver))

	summaries := cache.SummaryCache(cache.NoopSummaryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			summaries = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		logger.Info("cache: noop")
	}

	svc := service.New(repo, calc, summaries, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger.Named("service"))
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.CookieSecure)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger.Named("http"))

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("ledgerdesk backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func openRepository(ctx context.Context, cfg config.Config) (store.Repository, error) {
	switch cfg.DBDriver {
	case "memory":
		return memory.NewSeeded(), nil
	case "sqlite":
		return sqlstore.OpenSQLite(ctx, cfg.DBPath)
	case "postgres":
		return sqlstore.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
	}
	if cfg.AllowedOrigin == "*" && cfg.CookieSecure {
		return fmt.Errorf("ALLOWED_ORIGIN must name an origin when session cookies are secure")
	}
	return nil
}
