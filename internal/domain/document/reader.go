package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlyAggregate is a company's summed document spend for one calendar
// month. Derived, never persisted. Month is the first instant of the month
// in UTC.
type MonthlyAggregate struct {
	CompanyID  uuid.UUID
	Month      time.Time
	TotalSpend decimal.Decimal
}

// RegimeProfile is a simplified-regime company's trailing spend and input
// tax, the figures the regime optimizer reasons about.
type RegimeProfile struct {
	CompanyID    uuid.UUID
	TaxRegime    string
	TotalSpend   decimal.Decimal
	TotalTaxPaid decimal.Decimal
}

// AggregateReader supplies agents with pre-aggregated, read-only views over
// the document store. Implementations must never mutate documents.
type AggregateReader interface {
	// RecentScanned returns the most recent documents carrying extraction
	// output (completed, approved or rejected), newest first, at most limit.
	RecentScanned(ctx context.Context, limit int) ([]Document, error)

	// SpendingCompanies returns the ids of companies with at least one
	// completed document inside the trailing window of months.
	SpendingCompanies(ctx context.Context, months int) ([]uuid.UUID, error)

	// MonthlySpend returns a company's per-month completed spend for the
	// trailing window, ordered chronologically. Months with no documents
	// are absent, not zero.
	MonthlySpend(ctx context.Context, companyID uuid.UUID, months int) ([]MonthlyAggregate, error)

	// SimplifiedRegimeProfiles returns spend and input-tax totals over the
	// trailing window for every company under the simplified regime.
	SimplifiedRegimeProfiles(ctx context.Context, months int) ([]RegimeProfile, error)

	// PeriodDocuments returns every completed document created inside the
	// reporting period [from, to).
	PeriodDocuments(ctx context.Context, from, to time.Time) ([]Document, error)
}
