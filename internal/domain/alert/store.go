package alert

import (
	"context"

	"github.com/google/uuid"
)

// Outcome reports what CreateIfAbsent did
type Outcome string

const (
	// OutcomeCreated means a new unresolved alert was inserted
	OutcomeCreated Outcome = "created"
	// OutcomeSkipped means an unresolved alert with the same dedup key
	// already existed and nothing was written
	OutcomeSkipped Outcome = "skipped"
)

// Store is the shared deduplicating alert sink all agents write through.
//
// CreateIfAbsent must be atomic with respect to concurrent callers targeting
// the same (company, agent, dedup key): overlapping runs of the same agent
// may race on identical findings, and exactly one unresolved alert may win.
// Implementations back this with a uniqueness constraint and conditional
// insert, never with a separate read followed by a write.
type Store interface {
	CreateIfAbsent(ctx context.Context, cmd Command) (Outcome, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	Unresolved(ctx context.Context, companyID uuid.UUID) ([]Alert, error)
}
