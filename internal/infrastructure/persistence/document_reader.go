package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tributa/backend/internal/domain/company"
	"github.com/tributa/backend/internal/domain/document"
	"gorm.io/gorm"
)

// GormAggregateReader implements document.AggregateReader using GORM.
// Every query here is read-only; documents are never written from this
// codebase.
type GormAggregateReader struct {
	db *gorm.DB

	// now is swappable in tests to pin month-window bounds
	now func() time.Time
}

// NewGormAggregateReader creates a new GormAggregateReader
func NewGormAggregateReader(db *gorm.DB) *GormAggregateReader {
	return &GormAggregateReader{db: db, now: time.Now}
}

// RecentScanned returns the most recent documents carrying extraction output
func (r *GormAggregateReader) RecentScanned(ctx context.Context, limit int) ([]document.Document, error) {
	var docs []document.Document
	if err := r.db.WithContext(ctx).
		Where("status IN ?", document.ScannedStatuses).
		Order("created_at DESC").
		Limit(limit).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// SpendingCompanies returns companies with at least one completed document
// inside the trailing window
func (r *GormAggregateReader) SpendingCompanies(ctx context.Context, months int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	since, until := monthWindow(r.now(), months)
	if err := r.db.WithContext(ctx).
		Model(&document.Document{}).
		Distinct("company_id").
		Where("status = ? AND created_at >= ? AND created_at < ?", document.StatusCompleted, since, until).
		Pluck("company_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// MonthlySpend returns a company's per-month completed spend, oldest first.
// The payload total resolves through the same precedence list the agents
// use: totalAmount, then total_amount, then total, else zero.
func (r *GormAggregateReader) MonthlySpend(ctx context.Context, companyID uuid.UUID, months int) ([]document.MonthlyAggregate, error) {
	type monthRow struct {
		Month      time.Time
		TotalSpend decimal.Decimal
	}

	var rows []monthRow
	since, until := monthWindow(r.now(), months)

	err := r.db.WithContext(ctx).
		Table("documents").
		Select(`
			date_trunc('month', created_at) as month,
			COALESCE(SUM(
				COALESCE(
					NULLIF(payload->>'totalAmount', '')::numeric,
					NULLIF(payload->>'total_amount', '')::numeric,
					NULLIF(payload->>'total', '')::numeric,
					0
				)
			), 0) as total_spend
		`).
		Where("company_id = ?", companyID).
		Where("status = ?", document.StatusCompleted).
		Where("created_at >= ? AND created_at < ?", since, until).
		Group("date_trunc('month', created_at)").
		Order("month ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	aggregates := make([]document.MonthlyAggregate, len(rows))
	for i, row := range rows {
		aggregates[i] = document.MonthlyAggregate{
			CompanyID:  companyID,
			Month:      row.Month.UTC(),
			TotalSpend: row.TotalSpend,
		}
	}
	return aggregates, nil
}

// SimplifiedRegimeProfiles returns trailing spend and input tax per
// simplified-regime company
func (r *GormAggregateReader) SimplifiedRegimeProfiles(ctx context.Context, months int) ([]document.RegimeProfile, error) {
	type profileRow struct {
		CompanyID    uuid.UUID
		TaxRegime    string
		TotalSpend   decimal.Decimal
		TotalTaxPaid decimal.Decimal
	}

	var rows []profileRow
	since, until := monthWindow(r.now(), months)

	err := r.db.WithContext(ctx).
		Table("companies c").
		Select(`
			c.id as company_id,
			c.tax_regime,
			COALESCE(SUM(
				COALESCE(
					NULLIF(d.payload->>'totalAmount', '')::numeric,
					NULLIF(d.payload->>'total_amount', '')::numeric,
					NULLIF(d.payload->>'total', '')::numeric,
					0
				)
			), 0) as total_spend,
			COALESCE(SUM(
				COALESCE(
					NULLIF(d.payload->>'taxAmount', '')::numeric,
					NULLIF(d.payload->>'tax_amount', '')::numeric,
					NULLIF(d.payload->>'tax', '')::numeric,
					NULLIF(d.payload->>'iva', '')::numeric,
					0
				)
			), 0) as total_tax_paid
		`).
		Joins("LEFT JOIN documents d ON d.company_id = c.id AND d.status = ? AND d.created_at >= ? AND d.created_at < ?",
			document.StatusCompleted, since, until).
		Where("c.tax_regime = ?", company.RegimeSimplified).
		Group("c.id, c.tax_regime").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	profiles := make([]document.RegimeProfile, len(rows))
	for i, row := range rows {
		profiles[i] = document.RegimeProfile{
			CompanyID:    row.CompanyID,
			TaxRegime:    row.TaxRegime,
			TotalSpend:   row.TotalSpend,
			TotalTaxPaid: row.TotalTaxPaid,
		}
	}
	return profiles, nil
}

// PeriodDocuments returns completed documents created inside [from, to)
func (r *GormAggregateReader) PeriodDocuments(ctx context.Context, from, to time.Time) ([]document.Document, error) {
	var docs []document.Document
	if err := r.db.WithContext(ctx).
		Where("status = ?", document.StatusCompleted).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// monthWindow returns the half-open bounds [since, until) covering the last
// `months` complete calendar months, UTC. The in-progress month is excluded
// so trend and regime math never sees a partial bucket.
func monthWindow(now time.Time, months int) (since, until time.Time) {
	now = now.UTC()
	until = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return until.AddDate(0, -months, 0), until
}
