package alert

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tributa/backend/internal/domain/shared"
)

// Severity classifies how urgently an alert needs attention
type Severity string

const (
	SeverityInfo        Severity = "INFO"
	SeverityWarning     Severity = "WARNING"
	SeverityCritical    Severity = "CRITICAL"
	SeverityOpportunity Severity = "OPPORTUNITY"
)

// Alert is a finding raised by one of the heuristic agents for a company.
// For a given (company, agent, dedup key) at most one unresolved alert may
// exist; the persistence layer enforces this with a partial unique index.
type Alert struct {
	shared.BaseEntity
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	AgentName string    `gorm:"type:varchar(50);not null"`
	Severity  Severity  `gorm:"type:varchar(20);not null"`
	Title     string    `gorm:"type:varchar(200);not null"`
	Message   string    `gorm:"type:text;not null"`
	Metadata  string    `gorm:"type:jsonb"`
	DedupKey  string    `gorm:"type:varchar(200);not null"`
	Resolved  bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Alert) TableName() string {
	return "alerts"
}

// Command describes an alert an agent wants to raise. DedupKey defaults to
// the title, which is a fixed per-agent category string, so agents whose
// title is identical across all findings (the integrity auditor) must
// override it with the document id.
type Command struct {
	CompanyID uuid.UUID
	AgentName string
	Severity  Severity
	Title     string
	Message   string
	Metadata  map[string]interface{}
	DedupKey  string
}

// New builds the Alert row for a command
func New(cmd Command) (*Alert, error) {
	if cmd.CompanyID == uuid.Nil || cmd.AgentName == "" || cmd.Title == "" {
		return nil, shared.ErrInvalidInput
	}

	dedupKey := cmd.DedupKey
	if dedupKey == "" {
		dedupKey = cmd.Title
	}

	metadata := "{}"
	if len(cmd.Metadata) > 0 {
		encoded, err := json.Marshal(cmd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode alert metadata: %w", err)
		}
		metadata = string(encoded)
	}

	return &Alert{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  cmd.CompanyID,
		AgentName:  cmd.AgentName,
		Severity:   cmd.Severity,
		Title:      cmd.Title,
		Message:    cmd.Message,
		Metadata:   metadata,
		DedupKey:   dedupKey,
		Resolved:   false,
	}, nil
}
