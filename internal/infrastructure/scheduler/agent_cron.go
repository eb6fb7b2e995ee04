// Package scheduler triggers the daily agent batch. The agents themselves
// carry no scheduling logic; this is the external runner invoking them.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tributa/backend/internal/application/agents"
	"github.com/tributa/backend/internal/infrastructure/config"
)

// AgentRunner is the slice of the agent runner the cron needs
type AgentRunner interface {
	RunAll(ctx context.Context) []agents.Report
}

// AgentCron triggers one full agent pass per day at the configured time.
// A cheap ticker checks the clock; lastRunDate guards against double runs
// when a check interval lands on the same minute twice.
type AgentCron struct {
	config config.SchedulerConfig
	runner AgentRunner
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string

	// now is swappable so tests can pin the clock
	now func() time.Time
}

// NewAgentCron creates a new agent cron
func NewAgentCron(cfg config.SchedulerConfig, runner AgentRunner, logger *zap.Logger) *AgentCron {
	return &AgentCron{
		config: cfg,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
}

// Start starts the check loop. Calling Start on a running cron is a no-op.
func (c *AgentCron) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Agent cron started",
		zap.Int("daily_hour", c.config.DailyRunHour),
		zap.Int("daily_minute", c.config.DailyRunMin),
		zap.Duration("check_interval", c.config.CheckInterval),
	)

	return nil
}

// Stop stops the check loop, waiting for an in-flight batch to finish or the
// given context to expire
func (c *AgentCron) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Agent cron stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *AgentCron) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the batch when the clock crosses the configured time
// and it has not already run today
func (c *AgentCron) checkAndTrigger(ctx context.Context) {
	now := c.now()
	currentDate := now.Format("2006-01-02")

	c.mu.Lock()
	alreadyRan := c.lastRunDate == currentDate
	c.mu.Unlock()
	if alreadyRan {
		return
	}

	if now.Hour() != c.config.DailyRunHour || now.Minute() != c.config.DailyRunMin {
		return
	}

	c.mu.Lock()
	c.lastRunDate = currentDate
	c.mu.Unlock()

	c.logger.Info("Triggering daily agent batch")
	c.runBatch(ctx)
}

func (c *AgentCron) runBatch(ctx context.Context) {
	reports := c.runner.RunAll(ctx)
	for _, report := range reports {
		c.logger.Info("Agent batch report",
			zap.String("agent", report.Agent),
			zap.Int("processed", report.Processed),
			zap.Int("failed", report.Failed),
			zap.Int("alerts_created", report.Created),
			zap.Int("alerts_skipped", report.Skipped),
		)
	}
}

// TriggerNow runs the full batch immediately, outside the daily schedule
func (c *AgentCron) TriggerNow(ctx context.Context) {
	c.logger.Info("Manual agent batch triggered")
	c.runBatch(ctx)
}
