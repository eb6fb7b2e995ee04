// Package agents contains the four fiscal heuristic agents: the integrity
// auditor (sentinel), the spend forecaster (predictor), the regime optimizer
// and the compliance watchdog. Each agent is an independent batch analyzer
// reading pre-aggregated document views and writing findings through the
// deduplicating alert store. Agents never call each other and are safe to
// run in any order.
package agents

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

// Agent is the contract the runner invokes. Run is idempotent with respect
// to unresolved alerts: re-running over the same data skips findings that
// already have an open alert.
type Agent interface {
	Name() string
	Run(ctx context.Context) (Report, error)
}

// Report aggregates what one run did. A run keeps going past individual
// entity failures; Failed counts the entities whose analysis or alert write
// did not complete, while already-written alerts from earlier entities stay
// committed.
type Report struct {
	Agent     string `json:"agent"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
}

// raise writes one finding through the dedup store and folds the outcome
// into the report
func raise(ctx context.Context, store alert.Store, cmd alert.Command, report *Report) error {
	outcome, err := store.CreateIfAbsent(ctx, cmd)
	if err != nil {
		return err
	}
	telemetry.IncAlertOutcome(cmd.AgentName, string(outcome))
	switch outcome {
	case alert.OutcomeCreated:
		report.Created++
	case alert.OutcomeSkipped:
		report.Skipped++
	}
	return nil
}

// decimalFromFloat converts a configured float threshold into the decimal
// arithmetic the agents use
func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
