package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	agentsapp "github.com/tributa/backend/internal/application/agents"
	"github.com/tributa/backend/internal/domain/document"
	"github.com/tributa/backend/internal/infrastructure/cache"
	"github.com/tributa/backend/internal/infrastructure/config"
	"github.com/tributa/backend/internal/infrastructure/logger"
	"github.com/tributa/backend/internal/infrastructure/persistence"
	"github.com/tributa/backend/internal/infrastructure/scheduler"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewForEnvironment(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Tributa agent platform",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Tracer shutdown failed", zap.Error(err))
		}
	}()

	telemetry.InitMetrics()

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Database close failed", zap.Error(err))
		}
	}()

	baseReader := persistence.NewGormAggregateReader(db.DB)
	alertStore := persistence.NewGormAlertStore(db.DB)

	// Monthly aggregates read through Redis; everything else hits the
	// database directly. A dead Redis degrades to direct reads instead of
	// blocking startup.
	var reader document.AggregateReader = baseReader
	spendCache, err := cache.NewMonthlySpendCache(&cfg.Redis, baseReader)
	if err != nil {
		log.Warn("Redis unavailable, reading aggregates directly", zap.Error(err))
	} else {
		defer func() {
			if err := spendCache.Close(); err != nil {
				log.Error("Redis close failed", zap.Error(err))
			}
		}()
		reader = cache.NewCachingAggregateReader(baseReader, spendCache)
	}

	runner := agentsapp.NewRunner(log,
		agentsapp.NewSentinel(reader, alertStore, cfg.Agents, log),
		agentsapp.NewPredictor(reader, alertStore, cfg.Agents, log),
		agentsapp.NewOptimizer(reader, alertStore, cfg.Agents, log),
		agentsapp.NewWatchdog(reader, alertStore, cfg.Agents, log),
	)

	cron := scheduler.NewAgentCron(cfg.Scheduler, runner, log)
	if cfg.Scheduler.Enabled {
		if err := cron.Start(ctx); err != nil {
			log.Fatal("Failed to start agent cron", zap.Error(err))
		}
	} else {
		log.Info("Agent cron disabled by configuration")
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("Metrics listener started", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics listener failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Scheduler.Enabled {
		if err := cron.Stop(shutdownCtx); err != nil {
			log.Error("Agent cron stop failed", zap.Error(err))
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Metrics listener shutdown failed", zap.Error(err))
		}
	}

	log.Info("Shutdown complete")
}
