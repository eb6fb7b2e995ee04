package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tributa/backend/internal/domain/credit"
	"github.com/tributa/backend/internal/domain/shared"
)

func TestGormCreditAccountRepository_FindByID(t *testing.T) {
	t.Run("finds existing account", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		repo := NewGormCreditAccountRepository(gormDB)
		accountID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "owner_type", "owner_id", "balance"}).
			AddRow(accountID, "company", uuid.New(), decimal.NewFromInt(120))

		mock.ExpectQuery(`SELECT \* FROM "credit_accounts" WHERE id = \$1`).
			WillReturnRows(rows)

		account, err := repo.FindByID(context.Background(), accountID)
		require.NoError(t, err)
		assert.Equal(t, accountID, account.ID)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(120)))
	})

	t.Run("maps missing row to domain not-found", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		repo := NewGormCreditAccountRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "credit_accounts"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormCreditAccountRepository_FindByIDForUpdate(t *testing.T) {
	t.Run("acquires a row lock for the read", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		repo := NewGormCreditAccountRepository(gormDB)
		accountID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "owner_type", "owner_id", "balance"}).
			AddRow(accountID, "user", uuid.New(), decimal.NewFromInt(5))

		mock.ExpectQuery(`SELECT \* FROM "credit_accounts" WHERE id = \$1 .* FOR UPDATE`).
			WillReturnRows(rows)

		account, err := repo.FindByIDForUpdate(context.Background(), accountID)
		require.NoError(t, err)
		assert.Equal(t, accountID, account.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCreditAccountRepository_Save(t *testing.T) {
	t.Run("persists the new balance", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		repo := NewGormCreditAccountRepository(gormDB)

		account, err := credit.NewAccount(credit.OwnerTypeUser, uuid.New())
		require.NoError(t, err)
		require.NoError(t, account.Credit(decimal.NewFromInt(30)))

		mock.ExpectExec(`UPDATE "credit_accounts" SET "balance"=`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), account))
	})

	t.Run("returns not found when the row vanished", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		repo := NewGormCreditAccountRepository(gormDB)

		account, err := credit.NewAccount(credit.OwnerTypeUser, uuid.New())
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "credit_accounts"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Save(context.Background(), account), shared.ErrNotFound)
	})
}
