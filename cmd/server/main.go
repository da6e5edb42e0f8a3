package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linkhub/redirector/internal/config"
	"github.com/linkhub/redirector/internal/infra"
	"github.com/linkhub/redirector/internal/observability"
	"github.com/linkhub/redirector/internal/ratelimit"
	"github.com/linkhub/redirector/internal/server"
	"github.com/linkhub/redirector/internal/tracker"
)

func main() {
	// Load configuration from environment variables. This fails hard
	// when the click hash salt is missing in production mode.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize observability (logger, tracer, metrics)
	obs, err := observability.Setup(ctx, observability.Config{
		ServiceName:  "redirector",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Server.OTLPEndpoint,
	})
	if err != nil {
		log.Fatalf("Failed to setup observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger

	if cfg.Tracking.HashSalt == "" {
		logger.Warn("CLICK_HASH_SALT is empty; click hashes are not salted (non-production only)")
	}

	// Connect to database
	db, err := infra.NewPostgresPool(ctx, cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("database connected")

	// Connect to cache. The service can run without it: link lookups
	// go straight to Postgres and rate limiting falls back to the
	// in-memory store.
	cache, err := infra.NewCacheClient(ctx, cfg.Cache.ConnectionString())
	if err != nil {
		logger.Warn("cache unavailable, continuing without it", slog.String("error", err.Error()))
		cache = nil
	} else {
		defer cache.Close()
	}

	var limiter ratelimit.Limiter
	var janitorStop chan struct{}
	if cache != nil {
		limiter = ratelimit.NewRedisLimiter(cache)
	} else {
		memLimiter := ratelimit.NewMemoryLimiter()
		janitorStop = make(chan struct{})
		go memLimiter.CleanupLoop(janitorStop)
		limiter = memLimiter
	}

	// Optional click event fan-out
	var publisher tracker.Publisher
	if cfg.Broker.URL != "" {
		amqpPub, err := tracker.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			logger.Warn("broker unavailable, click events will not be published",
				slog.String("error", err.Error()))
		} else {
			defer amqpPub.Close()
			publisher = amqpPub
		}
	}

	srv := server.NewServer(cfg, db, cache, limiter, publisher, obs)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", slog.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		if janitorStop != nil {
			close(janitorStop)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("server exited gracefully")
}
