package credit

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tributa/backend/internal/domain/shared"
)

// OwnerType identifies who holds a credit account
type OwnerType string

const (
	OwnerTypeUser    OwnerType = "user"
	OwnerTypeCompany OwnerType = "company"
)

// Account is a credit wallet belonging to a user or a company.
// Invariant: Balance never goes below zero at any committed state; a debit
// that would breach this fails with no effect. Mutations happen only through
// the ledger service, which holds a row lock for the whole check-and-write.
type Account struct {
	shared.BaseEntity
	OwnerType OwnerType       `gorm:"type:varchar(20);not null;uniqueIndex:idx_credit_account_owner,priority:1"`
	OwnerID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_credit_account_owner,priority:2"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "credit_accounts"
}

// NewAccount creates an empty account for an owner
func NewAccount(ownerType OwnerType, ownerID uuid.UUID) (*Account, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}
	if ownerType != OwnerTypeUser && ownerType != OwnerTypeCompany {
		return nil, shared.ErrInvalidInput
	}
	return &Account{
		BaseEntity: shared.NewBaseEntity(),
		OwnerType:  ownerType,
		OwnerID:    ownerID,
		Balance:    decimal.Zero,
	}, nil
}

// Debit removes credits from the account
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	if a.Balance.LessThan(amount) {
		return shared.ErrInsufficientCredits
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Credit adds credits to the account
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}
