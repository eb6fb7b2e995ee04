package credit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tributa/backend/internal/domain/shared"
)

func TestNewAccount(t *testing.T) {
	t.Run("creates empty account", func(t *testing.T) {
		account, err := NewAccount(OwnerTypeCompany, uuid.New())
		require.NoError(t, err)
		assert.True(t, account.Balance.IsZero())
		assert.NotEqual(t, uuid.Nil, account.ID)
	})

	t.Run("rejects nil owner", func(t *testing.T) {
		_, err := NewAccount(OwnerTypeUser, uuid.Nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects unknown owner type", func(t *testing.T) {
		_, err := NewAccount(OwnerType("robot"), uuid.New())
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestAccountDebit(t *testing.T) {
	t.Run("debits within balance", func(t *testing.T) {
		account, _ := NewAccount(OwnerTypeUser, uuid.New())
		require.NoError(t, account.Credit(decimal.NewFromInt(20)))

		err := account.Debit(decimal.NewFromInt(15))
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(5)))
	})

	t.Run("fails on insufficient balance without partial effect", func(t *testing.T) {
		account, _ := NewAccount(OwnerTypeUser, uuid.New())
		require.NoError(t, account.Credit(decimal.NewFromInt(5)))

		err := account.Debit(decimal.NewFromInt(10))
		assert.ErrorIs(t, err, shared.ErrInsufficientCredits)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(5)))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		account, _ := NewAccount(OwnerTypeUser, uuid.New())
		assert.ErrorIs(t, account.Debit(decimal.Zero), shared.ErrInvalidAmount)
		assert.ErrorIs(t, account.Debit(decimal.NewFromInt(-3)), shared.ErrInvalidAmount)
		assert.ErrorIs(t, account.Credit(decimal.NewFromInt(-3)), shared.ErrInvalidAmount)
	})
}

func TestNewTransaction(t *testing.T) {
	t.Run("creates consume entry", func(t *testing.T) {
		accountID := uuid.New()
		tx, err := NewTransaction(accountID, decimal.NewFromInt(3), TransactionTypeConsume, "tool: audit")
		require.NoError(t, err)
		assert.Equal(t, accountID, tx.AccountID)
		assert.Equal(t, TransactionTypeConsume, tx.Type)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewTransaction(uuid.New(), decimal.Zero, TransactionTypeConsume, "")
		assert.ErrorIs(t, err, shared.ErrInvalidAmount)
	})

	t.Run("rejects nil account", func(t *testing.T) {
		_, err := NewTransaction(uuid.Nil, decimal.NewFromInt(1), TransactionTypeConsume, "")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
