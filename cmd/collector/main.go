package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/vmelnik/bazaar-data/internal/cache"
	"github.com/vmelnik/bazaar-data/internal/classify"
	"github.com/vmelnik/bazaar-data/internal/config"
	"github.com/vmelnik/bazaar-data/internal/feed"
	"github.com/vmelnik/bazaar-data/internal/ingest"
	"github.com/vmelnik/bazaar-data/internal/metrics"
	"github.com/vmelnik/bazaar-data/internal/store"
	"github.com/vmelnik/bazaar-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/collector.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting collector",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"gateway_url", cfg.Feed.GatewayURL,
		"peer", cfg.Feed.Peer,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Connect to redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	logger.Info("redis connected", "addr", cfg.Redis.Addr)

	// Create feed client
	feedClient := feed.NewClient(
		cfg.Feed.GatewayURL,
		cfg.Feed.Token,
		cfg.Feed.Peer,
		feed.WithLogger(logger),
		feed.WithTimeout(cfg.Feed.Timeout),
		feed.WithRetries(cfg.Feed.MaxRetries, time.Second),
	)

	// Wire the pipeline
	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.New(registry)

	catalog := store.NewCatalogStore(pool, logger)
	prices := store.NewPriceStore(pool, cfg.Ingest.CoinItemID, logger)
	invalidator := cache.NewInvalidator(rdb, logger)

	classifier := classify.New(classify.ArmorSetRule(cfg.Ingest.SetCategories...))

	orchCfg := ingest.Config{
		PageSize:             cfg.Feed.PageSize,
		BufferSize:           cfg.Ingest.BufferSize,
		HistoryDepth:         cfg.Ingest.HistoryDepth,
		PartialSaveThreshold: cfg.Ingest.PartialSaveThreshold,
	}
	orchestrator := ingest.New(
		orchCfg,
		feedClient,
		catalog,
		prices,
		prices,
		invalidator,
		prices,
		classifier,
		pipelineMetrics,
		logger,
	)
	guard := ingest.NewGuard(orchestrator, logger)

	// Health and metrics server
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHandler(cfg, pool, rdb, feedClient, orchestrator, registry),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Periodic trigger
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Scheduler.Interval)
		defer ticker.Stop()

		guard.Start(gctx)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				guard.Start(gctx)
			}
		}
	})

	// Realtime nudge: a new-message event on the feed stream starts a run
	// early instead of waiting out the ticker.
	if cfg.Feed.StreamURL != "" {
		listener := feed.NewListener(feed.ListenerConfig{
			URL:   cfg.Feed.StreamURL,
			Token: cfg.Feed.Token,
			Peer:  cfg.Feed.Peer,
		}, func() { guard.Start(gctx) }, logger)

		g.Go(func() error {
			listener.Run(gctx)
			return nil
		})
	}

	logger.Info("collector running",
		"instance_id", cfg.Instance.ID,
		"interval", cfg.Scheduler.Interval,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("collector error", "error", err)
	}

	// Wait for an in-flight run to observe cancellation and wind down.
	guard.Wait()

	logger.Info("collector stopped")
}

// createHandler builds the health and metrics HTTP handler.
func createHandler(cfg *config.CollectorConfig, pool interface{ Ping(context.Context) error }, rdb *redis.Client, feedClient *feed.Client, orch *ingest.Orchestrator, registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			State      string                 `json:"state"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			State:      orch.State().String(),
			Components: make(map[string]interface{}),
		}

		// Check database
		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		// Check redis
		if err := rdb.Ping(ctx).Err(); err != nil {
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
			health.Components["redis"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["redis"] = "connected"
		}

		// Check feed gateway
		if _, err := feedClient.UnreadCount(ctx); err != nil {
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
			health.Components["feed"] = map[string]string{
				"status": "unreachable",
				"error":  err.Error(),
			}
		} else {
			health.Components["feed"] = "connected"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return mux
}
