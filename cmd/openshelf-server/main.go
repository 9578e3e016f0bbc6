// Package main is the entry point for the openshelf API server, a book
// catalog backend with token authentication and per-user ownership.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/handler"
	"github.com/openshelf/openshelf/internal/metrics"
	"github.com/openshelf/openshelf/internal/ratelimit"
	"github.com/openshelf/openshelf/internal/repository"
	"github.com/openshelf/openshelf/internal/repository/postgres"
	"github.com/openshelf/openshelf/internal/repository/sqlite"
	"github.com/openshelf/openshelf/internal/service"
	"github.com/openshelf/openshelf/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting openshelf server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// Database
	userRepo, bookRepo, closeDB, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	// Token service. Construction fails on an empty secret, so a
	// misconfigured server never starts with guessable tokens.
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	// Cover store
	covers, coverDir, err := openCoverStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Services
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost, logger)
	bookService := service.NewBookService(bookRepo, userRepo, covers, logger)

	// Metrics. The typed recorder variables stay nil interfaces when metrics
	// are disabled, so the middlewares skip recording entirely.
	var m *metrics.Metrics
	var authFailures auth.FailureRecorder
	var rateLimitHits ratelimit.HitRecorder
	if cfg.Metrics.Enabled {
		m = metrics.New()
		authFailures = m
		rateLimitHits = m
	}

	// Rate limiter
	var rateLimitMW func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		counter, err := newCounter(ctx, cfg, logger)
		if err != nil {
			return err
		}
		rateLimitMW = ratelimit.Middleware(counter, int64(cfg.RateLimit.MaxAttempts), cfg.RateLimit.Window, rateLimitHits, logger)
	}

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:  handler.NewAuthHandler(userService, tokens, logger),
		BookHandler:  handler.NewBookHandler(bookService, logger),
		AuthRequired: auth.Middleware(tokens, userService, authFailures, logger),
		AuthOptional: auth.OptionalMiddleware(tokens, userService, logger),
		RateLimit:    rateLimitMW,
		Metrics:      m,
		MetricsPath:  cfg.Metrics.Path,
		CoverDir:     coverDir,
		MaxBodySize:  cfg.Server.MaxBodySize,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}

// openDatabase connects to the configured backend, runs migrations and
// returns the repositories.
func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.UserRepository, repository.BookRepository, func(), error) {
	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return sqlite.NewUserRepository(db), sqlite.NewBookRepository(db), func() { db.Close() }, nil
	}

	db, err := postgres.NewDB(ctx, postgres.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        cfg.Database.MaxOpenConns,
		MinConns:        cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return postgres.NewUserRepository(db), postgres.NewBookRepository(db), func() { db.Close() }, nil
}

// openCoverStore builds the configured cover image backend. The returned
// directory is non-empty only for the filesystem backend, which is served
// statically by the router.
func openCoverStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.CoverStore, string, error) {
	if cfg.Storage.Backend == "s3" {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        cfg.Storage.S3.Endpoint,
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			UseSSL:          cfg.Storage.S3.UseSSL,
		}, logger)
		return store, "", err
	}

	store, err := storage.NewFSStore(cfg.Storage.DataDir, cfg.Storage.PublicBaseURL, logger)
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}

// newCounter picks the rate limit backend: Redis when enabled, otherwise an
// in-process counter.
func newCounter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ratelimit.Counter, error) {
	if !cfg.Redis.Enabled {
		return ratelimit.NewMemoryCounter(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		DialTimeout: cfg.Redis.DialTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info().Str("addr", cfg.Redis.Addr()).Msg("connected to Redis")
	return ratelimit.NewRedisCounter(client), nil
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(out)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
