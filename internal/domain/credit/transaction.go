package credit

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tributa/backend/internal/domain/shared"
)

// TransactionType classifies a ledger movement
type TransactionType string

const (
	TransactionTypeConsume     TransactionType = "consume"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeUpgrade     TransactionType = "upgrade"
)

// Transaction is an append-only ledger entry written alongside every balance
// mutation. Rows are never updated or deleted.
type Transaction struct {
	shared.BaseEntity
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Type        TransactionType `gorm:"type:varchar(20);not null"`
	Description string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "credit_transactions"
}

// NewTransaction records one ledger movement for an account
func NewTransaction(accountID uuid.UUID, amount decimal.Decimal, txType TransactionType, description string) (*Transaction, error) {
	if accountID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	return &Transaction{
		BaseEntity:  shared.NewBaseEntity(),
		AccountID:   accountID,
		Amount:      amount,
		Type:        txType,
		Description: description,
	}, nil
}

// AuditEntry is the append-only audit line a transfer leaves behind,
// independent of the per-account transaction rows.
type AuditEntry struct {
	shared.BaseEntity
	Action        string          `gorm:"type:varchar(50);not null"`
	AccountID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	CounterpartID *uuid.UUID      `gorm:"type:uuid"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Detail        string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AuditEntry) TableName() string {
	return "credit_audit_logs"
}
