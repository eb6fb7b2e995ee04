package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/domain/shared"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB creates a gorm handle over a mocked SQL connection
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func validCommand() alert.Command {
	return alert.Command{
		CompanyID: uuid.New(),
		AgentName: "predictor",
		Severity:  alert.SeverityWarning,
		Title:     "Projected VAT increase",
		Message:   "forecast above historical average",
		Metadata:  map[string]interface{}{"trend": "growth"},
	}
}

func TestGormAlertStore_CreateIfAbsent(t *testing.T) {
	t.Run("creates when no unresolved alert holds the dedup slot", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		store := NewGormAlertStore(gormDB)

		mock.ExpectExec(`INSERT INTO "alerts" .* ON CONFLICT \("company_id","agent_name","dedup_key"\) WHERE resolved = false DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		outcome, err := store.CreateIfAbsent(context.Background(), validCommand())
		require.NoError(t, err)
		assert.Equal(t, alert.OutcomeCreated, outcome)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips when the conditional insert hits the unique index", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		store := NewGormAlertStore(gormDB)

		mock.ExpectExec(`INSERT INTO "alerts" .* DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		outcome, err := store.CreateIfAbsent(context.Background(), validCommand())
		require.NoError(t, err)
		assert.Equal(t, alert.OutcomeSkipped, outcome)
	})

	t.Run("rejects invalid commands before touching the store", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		store := NewGormAlertStore(gormDB)

		_, err := store.CreateIfAbsent(context.Background(), alert.Command{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAlertStore_Resolve(t *testing.T) {
	t.Run("resolves an open alert", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		store := NewGormAlertStore(gormDB)
		id := uuid.New()

		mock.ExpectExec(`UPDATE "alerts" SET "resolved"=.* WHERE id = .* AND resolved = false`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.Resolve(context.Background(), id))
	})

	t.Run("returns not found for unknown or already-resolved alerts", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		store := NewGormAlertStore(gormDB)

		mock.ExpectExec(`UPDATE "alerts"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Resolve(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormAlertStore_Unresolved(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	store := NewGormAlertStore(gormDB)
	companyID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "company_id", "agent_name", "severity", "title", "resolved"}).
		AddRow(uuid.New(), companyID, "sentinel", "CRITICAL", "Document integrity check failed", false)

	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE company_id = \$1 AND resolved = false`).
		WillReturnRows(rows)

	alerts, err := store.Unresolved(context.Background(), companyID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "sentinel", alerts[0].AgentName)
}
