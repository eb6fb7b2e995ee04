package document

import (
	"github.com/google/uuid"
	"github.com/tributa/backend/internal/domain/shared"
)

// Status represents the processing status of an ingested fiscal document
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ScannedStatuses are the statuses whose documents already carry extracted
// fiscal data and are therefore eligible for analysis.
var ScannedStatuses = []Status{StatusCompleted, StatusApproved, StatusRejected}

// FraudRisk is the risk tag assigned by the upstream extraction pipeline
type FraudRisk string

const (
	FraudRiskLow      FraudRisk = "LOW"
	FraudRiskMedium   FraudRisk = "MEDIUM"
	FraudRiskHigh     FraudRisk = "HIGH"
	FraudRiskCritical FraudRisk = "CRITICAL"
)

// Document is a fiscal document (invoice, receipt) ingested for a company.
// Documents are created by the ingestion pipeline and never mutated here;
// every repository over them is read-only.
type Document struct {
	shared.BaseEntity
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Status    Status    `gorm:"type:varchar(20);not null;default:'pending'"`
	Payload   string    `gorm:"type:jsonb"` // extraction output, source-dependent field names
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// IsScanned reports whether the document has extraction output worth analyzing
func (d *Document) IsScanned() bool {
	switch d.Status {
	case StatusCompleted, StatusApproved, StatusRejected:
		return true
	}
	return false
}
