package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tributa/backend/internal/domain/credit"
	"github.com/tributa/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCreditAccountRepository implements credit.AccountRepository using GORM
type GormCreditAccountRepository struct {
	db *gorm.DB
}

// NewGormCreditAccountRepository creates a new GormCreditAccountRepository
func NewGormCreditAccountRepository(db *gorm.DB) *GormCreditAccountRepository {
	return &GormCreditAccountRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormCreditAccountRepository) WithTx(tx *gorm.DB) *GormCreditAccountRepository {
	return &GormCreditAccountRepository{db: tx}
}

// FindByID finds a credit account by ID
func (r *GormCreditAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Account, error) {
	var account credit.Account
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByIDForUpdate finds a credit account and takes an exclusive row lock.
// Callers must be inside a transaction; the lock lives until it commits or
// rolls back, which is what serializes concurrent balance checks on the same
// account. Different accounts lock different rows and do not block each other.
func (r *GormCreditAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*credit.Account, error) {
	var account credit.Account
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByOwner finds the account belonging to a user or company
func (r *GormCreditAccountRepository) FindByOwner(ctx context.Context, ownerType credit.OwnerType, ownerID uuid.UUID) (*credit.Account, error) {
	var account credit.Account
	if err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Create inserts a new credit account
func (r *GormCreditAccountRepository) Create(ctx context.Context, account *credit.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// Save persists the balance of an already-locked account
func (r *GormCreditAccountRepository) Save(ctx context.Context, account *credit.Account) error {
	result := r.db.WithContext(ctx).
		Model(&credit.Account{}).
		Where("id = ?", account.ID).
		Update("balance", account.Balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
