package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tributa/backend/internal/domain/document"
)

type mockAggregateReader struct {
	mock.Mock
}

func (m *mockAggregateReader) RecentScanned(ctx context.Context, limit int) ([]document.Document, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *mockAggregateReader) SpendingCompanies(ctx context.Context, months int) ([]uuid.UUID, error) {
	args := m.Called(ctx, months)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockAggregateReader) MonthlySpend(ctx context.Context, companyID uuid.UUID, months int) ([]document.MonthlyAggregate, error) {
	args := m.Called(ctx, companyID, months)
	return args.Get(0).([]document.MonthlyAggregate), args.Error(1)
}

func (m *mockAggregateReader) SimplifiedRegimeProfiles(ctx context.Context, months int) ([]document.RegimeProfile, error) {
	args := m.Called(ctx, months)
	return args.Get(0).([]document.RegimeProfile), args.Error(1)
}

func (m *mockAggregateReader) PeriodDocuments(ctx context.Context, from, to time.Time) ([]document.Document, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]document.Document), args.Error(1)
}

func TestMonthlySpendCache_FallsThroughWhenRedisUnavailable(t *testing.T) {
	// Client pointed at a port nothing listens on
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	companyID := uuid.New()
	expected := []document.MonthlyAggregate{
		{CompanyID: companyID, Month: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), TotalSpend: decimal.NewFromInt(150)},
	}

	reader := new(mockAggregateReader)
	reader.On("MonthlySpend", mock.Anything, companyID, 6).Return(expected, nil)

	c := NewMonthlySpendCacheWithClient(client, reader, time.Minute)

	got, err := c.MonthlySpend(context.Background(), companyID, 6)
	require.NoError(t, err)
	assert.Equal(t, expected, got)
	reader.AssertExpectations(t)
}

func TestCachingAggregateReader_RoutesOnlyMonthlySpendThroughCache(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	companyID := uuid.New()
	aggregates := []document.MonthlyAggregate{
		{CompanyID: companyID, Month: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), TotalSpend: decimal.NewFromInt(900)},
	}

	reader := new(mockAggregateReader)
	reader.On("MonthlySpend", mock.Anything, companyID, 6).Return(aggregates, nil)
	reader.On("SpendingCompanies", mock.Anything, 6).Return([]uuid.UUID{companyID}, nil)

	cached := NewCachingAggregateReader(reader, NewMonthlySpendCacheWithClient(client, reader, time.Minute))

	got, err := cached.MonthlySpend(context.Background(), companyID, 6)
	require.NoError(t, err)
	assert.Equal(t, aggregates, got)

	ids, err := cached.SpendingCompanies(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{companyID}, ids)
	reader.AssertExpectations(t)
}

func TestEncodeDecodeAggregates_RoundTrip(t *testing.T) {
	companyID := uuid.New()
	original := []document.MonthlyAggregate{
		{CompanyID: companyID, Month: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), TotalSpend: decimal.RequireFromString("1234.5678")},
		{CompanyID: companyID, Month: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), TotalSpend: decimal.Zero},
	}

	encoded, err := encodeAggregates(original)
	require.NoError(t, err)

	decoded, err := decodeAggregates(companyID, encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i := range original {
		assert.Equal(t, original[i].CompanyID, decoded[i].CompanyID)
		assert.True(t, original[i].Month.Equal(decoded[i].Month))
		assert.True(t, original[i].TotalSpend.Equal(decoded[i].TotalSpend))
	}
}

func TestDecodeAggregates_RejectsCorruptPayload(t *testing.T) {
	_, err := decodeAggregates(uuid.New(), "not json")
	assert.Error(t, err)

	_, err = decodeAggregates(uuid.New(), `[{"month":"2026-01-01T00:00:00Z","total_spend":"abc"}]`)
	assert.Error(t, err)
}
