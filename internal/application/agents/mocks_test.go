package agents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/domain/document"
	"github.com/tributa/backend/internal/infrastructure/config"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) RecentScanned(ctx context.Context, limit int) ([]document.Document, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *mockReader) SpendingCompanies(ctx context.Context, months int) ([]uuid.UUID, error) {
	args := m.Called(ctx, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockReader) MonthlySpend(ctx context.Context, companyID uuid.UUID, months int) ([]document.MonthlyAggregate, error) {
	args := m.Called(ctx, companyID, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.MonthlyAggregate), args.Error(1)
}

func (m *mockReader) SimplifiedRegimeProfiles(ctx context.Context, months int) ([]document.RegimeProfile, error) {
	args := m.Called(ctx, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.RegimeProfile), args.Error(1)
}

func (m *mockReader) PeriodDocuments(ctx context.Context, from, to time.Time) ([]document.Document, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

// mockAlertStore records every command it receives so tests can assert on
// alert content, not just call counts
type mockAlertStore struct {
	mock.Mock
	commands []alert.Command
}

func (m *mockAlertStore) CreateIfAbsent(ctx context.Context, cmd alert.Command) (alert.Outcome, error) {
	m.commands = append(m.commands, cmd)
	args := m.Called(ctx, cmd)
	return args.Get(0).(alert.Outcome), args.Error(1)
}

func (m *mockAlertStore) Resolve(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAlertStore) Unresolved(ctx context.Context, companyID uuid.UUID) ([]alert.Alert, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]alert.Alert), args.Error(1)
}

func testAgentsConfig() config.AgentsConfig {
	return config.AgentsConfig{
		ScanBatchSize:    100,
		BaseToleranceAOA: 1.0,

		VATRate: 0.14,

		TrendWindowMonths: 6,
		GrowthThreshold:   1.10,
		DeclineThreshold:  0.90,
		GrowthProjection:  1.05,
		DeclineProjection: 0.95,
		VATAlertRatio:     1.2,
		MinHistoryMonths:  2,

		RegimeWindowMonths:   12,
		RecoverableThreshold: 100000,
	}
}

func scannedDoc(companyID uuid.UUID, payload string) document.Document {
	doc := document.Document{
		CompanyID: companyID,
		Status:    document.StatusCompleted,
		Payload:   payload,
	}
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now().UTC()
	return doc
}
