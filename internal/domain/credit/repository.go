package credit

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository provides access to credit accounts. FindByIDForUpdate
// must acquire an exclusive row lock valid for the lifetime of the enclosing
// transaction, so concurrent balance checks against the same account
// serialize. Save persists an already-locked account.
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByOwner(ctx context.Context, ownerType OwnerType, ownerID uuid.UUID) (*Account, error)
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account) error
}

// TransactionRepository appends ledger entries and serves history reads.
// Entries are write-once; there is deliberately no update or delete.
type TransactionRepository interface {
	Append(ctx context.Context, tx *Transaction) error
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]Transaction, error)
}

// AuditRepository appends transfer audit lines
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
}
