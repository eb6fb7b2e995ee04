package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/domain/document"
	"github.com/tributa/backend/internal/infrastructure/config"
	applogger "github.com/tributa/backend/internal/infrastructure/logger"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

// OptimizerName identifies the regime optimizer in alerts and logs
const OptimizerName = "optimizer"

const optimizerAlertTitle = "Tax regime change opportunity"

// Optimizer looks at companies under the simplified regime and surfaces an
// opportunity alert when the input tax they paid over the trailing window,
// which a general-regime company could deduct, crosses an absolute threshold.
type Optimizer struct {
	reader document.AggregateReader
	alerts alert.Store
	cfg    config.AgentsConfig
	logger *zap.Logger
}

// NewOptimizer creates the regime optimizer
func NewOptimizer(reader document.AggregateReader, alerts alert.Store, cfg config.AgentsConfig, logger *zap.Logger) *Optimizer {
	return &Optimizer{reader: reader, alerts: alerts, cfg: cfg, logger: logger}
}

// Name returns the agent name
func (o *Optimizer) Name() string { return OptimizerName }

// Run evaluates every simplified-regime company. Re-running before an alert
// is resolved skips the finding, so the opportunity is surfaced exactly once.
func (o *Optimizer) Run(ctx context.Context) (Report, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, OptimizerName, "run")
	defer span.End()

	runID := uuid.New().String()
	ctx, log := applogger.WithRunID(ctx, o.logger, runID)
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, runID)

	start := time.Now()
	report := Report{Agent: OptimizerName}

	log.Info("Optimizer run started",
		zap.Int("window_months", o.cfg.RegimeWindowMonths),
		zap.Float64("recoverable_threshold", o.cfg.RecoverableThreshold),
	)

	profiles, err := o.reader.SimplifiedRegimeProfiles(ctx, o.cfg.RegimeWindowMonths)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ObserveAgentRun(OptimizerName, telemetry.ResultError, time.Since(start))
		log.Error("Optimizer run failed: could not load regime profiles", zap.Error(err))
		return report, fmt.Errorf("failed to load regime profiles: %w", err)
	}

	for _, profile := range profiles {
		if err := o.evaluate(ctx, profile, &report); err != nil {
			report.Failed++
			log.Warn("Regime evaluation failed",
				zap.String("company_id", profile.CompanyID.String()),
				zap.Error(err),
			)
			continue
		}
		report.Processed++
	}

	telemetry.AddAgentEntities(OptimizerName, report.Processed, report.Failed)
	telemetry.ObserveAgentRun(OptimizerName, telemetry.ResultSuccess, time.Since(start))
	log.Info("Optimizer run completed",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Int("alerts_created", report.Created),
		zap.Int("alerts_skipped", report.Skipped),
	)
	return report, nil
}

func (o *Optimizer) evaluate(ctx context.Context, profile document.RegimeProfile, report *Report) error {
	// Recoverable amount = input tax paid over the window. The alert fires
	// on an absolute threshold, not on a ratio of total spend.
	recoverable := profile.TotalTaxPaid
	if !recoverable.GreaterThan(decimalFromFloat(o.cfg.RecoverableThreshold)) {
		return nil
	}

	return raise(ctx, o.alerts, alert.Command{
		CompanyID: profile.CompanyID,
		AgentName: OptimizerName,
		Severity:  alert.SeverityOpportunity,
		Title:     optimizerAlertTitle,
		Message: fmt.Sprintf(
			"Switching from the %s regime to the general regime would allow deducting approximately %s in input tax paid over the last %d months",
			profile.TaxRegime, recoverable.StringFixed(2), o.cfg.RegimeWindowMonths),
		Metadata: map[string]interface{}{
			"current_regime":    profile.TaxRegime,
			"total_expenses":    profile.TotalSpend.String(),
			"potential_savings": recoverable.String(),
			"window_months":     o.cfg.RegimeWindowMonths,
		},
	}, report)
}
