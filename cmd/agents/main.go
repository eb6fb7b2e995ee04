// Command agents runs the compliance agents once and exits. It is the
// operational companion to the scheduled runs inside the server: the same
// wiring, triggered by hand or by an external cron.
//
// Usage:
//
//	agents run all
//	agents run sentinel
//	agents run predictor
//	agents run optimizer
//	agents run watchdog
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	agentsapp "github.com/tributa/backend/internal/application/agents"
	"github.com/tributa/backend/internal/domain/document"
	"github.com/tributa/backend/internal/infrastructure/cache"
	"github.com/tributa/backend/internal/infrastructure/config"
	"github.com/tributa/backend/internal/infrastructure/logger"
	"github.com/tributa/backend/internal/infrastructure/persistence"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

func main() {
	if len(os.Args) < 3 || os.Args[1] != "run" {
		printUsage()
		os.Exit(2)
	}
	target := strings.ToLower(os.Args[2])

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

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdownCtx)
	}()

	telemetry.InitMetrics()

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	baseReader := persistence.NewGormAggregateReader(db.DB)
	alertStore := persistence.NewGormAlertStore(db.DB)

	// One-shot runs still go through the cache so they share warm windows
	// with the scheduled runs. Redis being down degrades to direct reads.
	var reader document.AggregateReader = baseReader
	spendCache, err := cache.NewMonthlySpendCache(&cfg.Redis, baseReader)
	if err != nil {
		log.Warn("Redis unavailable, reading aggregates directly", zap.Error(err))
	} else {
		defer func() {
			_ = spendCache.Close()
		}()
		reader = cache.NewCachingAggregateReader(baseReader, spendCache)
	}

	runner := agentsapp.NewRunner(log,
		agentsapp.NewSentinel(reader, alertStore, cfg.Agents, log),
		agentsapp.NewPredictor(reader, alertStore, cfg.Agents, log),
		agentsapp.NewOptimizer(reader, alertStore, cfg.Agents, log),
		agentsapp.NewWatchdog(reader, alertStore, cfg.Agents, log),
	)

	var reports []agentsapp.Report
	failed := false

	if target == "all" {
		reports = runner.RunAll(ctx)
	} else {
		report, err := runner.Run(ctx, target)
		if err != nil {
			log.Error("Agent run failed", zap.String("agent", target), zap.Error(err))
			failed = true
		}
		reports = []agentsapp.Report{report}
	}

	encoded, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		log.Fatal("Failed to encode reports", zap.Error(err))
	}
	fmt.Println(string(encoded))

	if failed {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Tributa Agents CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  agents run <sentinel|predictor|optimizer|watchdog|all>")
}
