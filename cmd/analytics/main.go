// Command analytics starts the search analytics service.
//
// It consumes search, index, and match events from Kafka and folds them into
// in-memory statistics: query volumes, cache hit rates, latency percentiles,
// top queries, and zero-result queries. The aggregate is served over HTTP.
// With PostgreSQL enabled the statistics are also snapshotted on an interval
// and the snapshot history becomes queryable.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/production.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchlab/ranksearch/internal/analytics"
	"github.com/searchlab/ranksearch/internal/analytics/store"
	"github.com/searchlab/ranksearch/pkg/config"
	"github.com/searchlab/ranksearch/pkg/health"
	"github.com/searchlab/ranksearch/pkg/kafka"
	"github.com/searchlab/ranksearch/pkg/logger"
	"github.com/searchlab/ranksearch/pkg/middleware"
	"github.com/searchlab/ranksearch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service",
		"port", cfg.Analytics.Port,
		"topic", cfg.Kafka.Topics.AnalyticsEvents,
		"group", cfg.Kafka.ConsumerGroup,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator(cfg.Analytics.TopQueries)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("kafka consumer error", "error", err)
		}
	}()

	// Snapshot persistence is optional; without Postgres the service keeps
	// statistics in memory only.
	var snapshots analytics.SnapshotSource
	var db *postgres.Client
	if cfg.Postgres.Enabled {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		snapshotStore := store.NewStore(db)
		if err := snapshotStore.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure snapshot schema", "error", err)
			os.Exit(1)
		}
		if snap, err := snapshotStore.LatestSnapshot(ctx); err != nil {
			slog.Warn("failed to load latest snapshot", "error", err)
		} else if snap != nil {
			aggregator.Restore(*snap)
			slog.Info("aggregate state restored from snapshot",
				"total_searches", snap.TotalSearches)
		}
		snapshotStore.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		snapshots = snapshotStore
		slog.Info("snapshot persistence enabled", "interval", cfg.Analytics.SnapshotInterval)
	}

	checker := health.NewChecker()
	checker.Register("aggregator", func(ctx context.Context) health.ComponentHealth {
		stats := aggregator.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d searches aggregated", stats.TotalSearches),
		}
	})
	if db != nil {
		checker.Register("postgres", health.PingCheck(db.Ping))
	}

	h := analytics.NewHandler(aggregator, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/stats/queries/top", h.TopQueries)
	mux.HandleFunc("GET /api/v1/stats/snapshots", h.Snapshots)
	mux.HandleFunc("GET /api/v1/stats/snapshots/latest", h.LatestSnapshot)
	mux.HandleFunc("GET /health", checker.Handler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
