package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/domain/document"
)

func newOptimizer(reader *mockReader, store *mockAlertStore) *Optimizer {
	return NewOptimizer(reader, store, testAgentsConfig(), zap.NewNop())
}

func simplifiedProfile(companyID uuid.UUID, spend, taxPaid int64) document.RegimeProfile {
	return document.RegimeProfile{
		CompanyID:    companyID,
		TaxRegime:    "simplified",
		TotalSpend:   decimal.NewFromInt(spend),
		TotalTaxPaid: decimal.NewFromInt(taxPaid),
	}
}

func TestOptimizer_Run(t *testing.T) {
	t.Run("raises an opportunity when recoverable tax crosses the threshold", func(t *testing.T) {
		companyID := uuid.New()

		reader := new(mockReader)
		reader.On("SimplifiedRegimeProfiles", mock.Anything, 12).
			Return([]document.RegimeProfile{simplifiedProfile(companyID, 1200000, 150000)}, nil)
		store := new(mockAlertStore)
		store.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(alert.OutcomeCreated, nil)

		report, err := newOptimizer(reader, store).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Created)

		require.Len(t, store.commands, 1)
		cmd := store.commands[0]
		assert.Equal(t, alert.SeverityOpportunity, cmd.Severity)
		assert.Equal(t, "simplified", cmd.Metadata["current_regime"])
		assert.Equal(t, "150000", cmd.Metadata["potential_savings"])
	})

	t.Run("a second run before resolution is skipped, not duplicated", func(t *testing.T) {
		companyID := uuid.New()
		profiles := []document.RegimeProfile{simplifiedProfile(companyID, 1200000, 150000)}

		reader := new(mockReader)
		reader.On("SimplifiedRegimeProfiles", mock.Anything, 12).Return(profiles, nil)
		store := new(mockAlertStore)
		store.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(alert.OutcomeCreated, nil).Once()
		store.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(alert.OutcomeSkipped, nil).Once()

		optimizer := newOptimizer(reader, store)

		first, err := optimizer.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, first.Created)

		second, err := optimizer.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, second.Created)
		assert.Equal(t, 1, second.Skipped)
	})

	t.Run("stays quiet below the threshold", func(t *testing.T) {
		reader := new(mockReader)
		reader.On("SimplifiedRegimeProfiles", mock.Anything, 12).
			Return([]document.RegimeProfile{simplifiedProfile(uuid.New(), 500000, 70000)}, nil)
		store := new(mockAlertStore)

		report, err := newOptimizer(reader, store).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		assert.Empty(t, store.commands)
	})

	t.Run("the threshold itself does not fire", func(t *testing.T) {
		reader := new(mockReader)
		reader.On("SimplifiedRegimeProfiles", mock.Anything, 12).
			Return([]document.RegimeProfile{simplifiedProfile(uuid.New(), 800000, 100000)}, nil)
		store := new(mockAlertStore)

		_, err := newOptimizer(reader, store).Run(context.Background())
		require.NoError(t, err)
		assert.Empty(t, store.commands)
	})

	t.Run("aborts the run when profiles cannot be read", func(t *testing.T) {
		reader := new(mockReader)
		reader.On("SimplifiedRegimeProfiles", mock.Anything, 12).Return(nil, errors.New("connection refused"))
		store := new(mockAlertStore)

		_, err := newOptimizer(reader, store).Run(context.Background())
		assert.Error(t, err)
	})
}
