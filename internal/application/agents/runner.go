package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Runner drives the agents sequentially. One agent's run-level failure is
// logged and does not stop the others; partial per-entity progress an agent
// committed before failing stays committed.
type Runner struct {
	agents []Agent
	logger *zap.Logger
}

// NewRunner creates a runner over the given agents, executed in order
func NewRunner(logger *zap.Logger, agents ...Agent) *Runner {
	return &Runner{agents: agents, logger: logger}
}

// RunAll executes every agent once and returns their reports
func (r *Runner) RunAll(ctx context.Context) []Report {
	reports := make([]Report, 0, len(r.agents))
	for _, agent := range r.agents {
		report, err := agent.Run(ctx)
		if err != nil {
			r.logger.Error("Agent run failed",
				zap.String("agent", agent.Name()),
				zap.Error(err),
			)
		}
		reports = append(reports, report)
	}
	return reports
}

// Run executes a single agent by name
func (r *Runner) Run(ctx context.Context, name string) (Report, error) {
	for _, agent := range r.agents {
		if agent.Name() == name {
			return agent.Run(ctx)
		}
	}
	return Report{}, fmt.Errorf("unknown agent %q", name)
}

// Names lists the registered agent names in execution order
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.agents))
	for _, agent := range r.agents {
		names = append(names, agent.Name())
	}
	return names
}
