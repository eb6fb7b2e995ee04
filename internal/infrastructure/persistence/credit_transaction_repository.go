package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/tributa/backend/internal/domain/credit"
	"gorm.io/gorm"
)

// GormCreditTransactionRepository implements credit.TransactionRepository
// using GORM. Ledger entries are append-only: there is no update or delete
// path, matching the audit contract of the transaction log.
type GormCreditTransactionRepository struct {
	db *gorm.DB
}

// NewGormCreditTransactionRepository creates a new GormCreditTransactionRepository
func NewGormCreditTransactionRepository(db *gorm.DB) *GormCreditTransactionRepository {
	return &GormCreditTransactionRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormCreditTransactionRepository) WithTx(tx *gorm.DB) *GormCreditTransactionRepository {
	return &GormCreditTransactionRepository{db: tx}
}

// Append writes one ledger entry
func (r *GormCreditTransactionRepository) Append(ctx context.Context, tx *credit.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// History returns an account's most recent ledger entries, newest first
func (r *GormCreditTransactionRepository) History(ctx context.Context, accountID uuid.UUID, limit int) ([]credit.Transaction, error) {
	var transactions []credit.Transaction
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// GormCreditAuditRepository implements credit.AuditRepository using GORM
type GormCreditAuditRepository struct {
	db *gorm.DB
}

// NewGormCreditAuditRepository creates a new GormCreditAuditRepository
func NewGormCreditAuditRepository(db *gorm.DB) *GormCreditAuditRepository {
	return &GormCreditAuditRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormCreditAuditRepository) WithTx(tx *gorm.DB) *GormCreditAuditRepository {
	return &GormCreditAuditRepository{db: tx}
}

// Append writes one audit line
func (r *GormCreditAuditRepository) Append(ctx context.Context, entry *credit.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
