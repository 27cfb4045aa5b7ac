// Command searchd starts the search service.
//
// searchd owns the in-memory inverted index and exposes it over a versioned
// HTTP API: document submission, ranked TF-IDF search with status filtering,
// per-document match inspection, and index statistics. Redis-backed query
// caching, Kafka analytics events, API-key authentication, the internal RPC
// listener, and the Prometheus endpoint are all opt-in via configuration;
// with everything disabled the service runs fully standalone.
//
// Usage:
//
//	go run ./cmd/searchd [-config configs/production.yaml]
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

	"golang.org/x/sync/errgroup"

	"github.com/searchlab/ranksearch/internal/analytics"
	"github.com/searchlab/ranksearch/internal/auth"
	"github.com/searchlab/ranksearch/internal/auth/apikey"
	"github.com/searchlab/ranksearch/internal/auth/ratelimit"
	"github.com/searchlab/ranksearch/internal/cache"
	"github.com/searchlab/ranksearch/internal/engine"
	"github.com/searchlab/ranksearch/internal/httpapi"
	"github.com/searchlab/ranksearch/internal/rpcapi"
	"github.com/searchlab/ranksearch/pkg/config"
	"github.com/searchlab/ranksearch/pkg/health"
	"github.com/searchlab/ranksearch/pkg/kafka"
	"github.com/searchlab/ranksearch/pkg/logger"
	"github.com/searchlab/ranksearch/pkg/metrics"
	"github.com/searchlab/ranksearch/pkg/middleware"
	"github.com/searchlab/ranksearch/pkg/postgres"
	pkgredis "github.com/searchlab/ranksearch/pkg/redis"
	"github.com/searchlab/ranksearch/pkg/rpc"
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
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"top_k", cfg.Engine.TopK,
		"stop_words", len(cfg.Engine.StopWords),
	)

	eng := engine.New(cfg.Engine)

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis query cache.
	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, m)
			slog.Info("query cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	// Kafka analytics collector.
	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics, m)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	// PostgreSQL-backed API-key auth.
	var db *postgres.Client
	var validator *apikey.Validator
	var limiter *ratelimit.Limiter
	if cfg.Auth.Enabled {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("auth enabled but postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		validator = apikey.NewValidator(db)
		if err := validator.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure api key schema", "error", err)
			os.Exit(1)
		}
		limiter = ratelimit.New(cfg.Auth.RateLimitWindow)
		slog.Info("api key auth enabled", "rate_limit_window", cfg.Auth.RateLimitWindow)
	}

	// Internal RPC listener. Binding happens here so a bad address fails
	// startup; serving joins the errgroup below.
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcServer = rpc.NewServer()
		rpcapi.Register(rpcServer, eng)
		if err := rpcServer.Listen(cfg.RPC.Addr); err != nil {
			slog.Error("failed to bind rpc listener", "addr", cfg.RPC.Addr, "error", err)
			os.Exit(1)
		}
	}

	checker := health.NewChecker()
	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		docs, terms, bytes := eng.IndexStats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms, %d index bytes", docs, terms, bytes),
		}
	})
	if cfg.Redis.Enabled {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if redisClient == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			}
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
	if db != nil {
		checker.Register("postgres", health.PingCheck(db.Ping))
	}

	h := httpapi.New(eng, queryCache, collector, m, cfg.Tracing)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/documents/count", h.Count)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/match", h.Match)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", checker.Handler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if cfg.Auth.Enabled {
		chain = auth.RateLimit(limiter)(chain)
		chain = auth.Auth(validator)(chain)
	}
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if rpcServer != nil {
		g.Go(func() error {
			if err := rpcServer.Serve(); err != nil {
				return fmt.Errorf("rpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Shuts everything down on the first signal or the first listener error.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if rpcServer != nil {
			rpcServer.Stop()
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
