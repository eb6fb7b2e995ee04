package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tributa/backend/internal/domain/alert"
	"github.com/tributa/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAlertStore implements alert.Store using GORM
type GormAlertStore struct {
	db *gorm.DB
}

// NewGormAlertStore creates a new GORM-based alert store
func NewGormAlertStore(db *gorm.DB) *GormAlertStore {
	return &GormAlertStore{db: db}
}

// CreateIfAbsent inserts an unresolved alert unless one with the same
// (company, agent, dedup key) already exists. The check and the insert are a
// single statement: an INSERT ... ON CONFLICT DO NOTHING against the partial
// unique index uq_alerts_unresolved_dedup, so concurrent runs of the same
// agent cannot double-create an alert. RowsAffected tells the two outcomes
// apart.
func (s *GormAlertStore) CreateIfAbsent(ctx context.Context, cmd alert.Command) (alert.Outcome, error) {
	a, err := alert.New(cmd)
	if err != nil {
		return "", err
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "company_id"},
				{Name: "agent_name"},
				{Name: "dedup_key"},
			},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "resolved = false"},
			}},
			DoNothing: true,
		}).
		Create(a)
	if result.Error != nil {
		return "", fmt.Errorf("failed to insert alert: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return alert.OutcomeSkipped, nil
	}
	return alert.OutcomeCreated, nil
}

// Resolve marks an alert as resolved. Once resolved it no longer occupies
// the dedup slot, so the same finding can be raised again later.
func (s *GormAlertStore) Resolve(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&alert.Alert{}).
		Where("id = ? AND resolved = false", id).
		Update("resolved", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Unresolved lists a company's open alerts, newest first
func (s *GormAlertStore) Unresolved(ctx context.Context, companyID uuid.UUID) ([]alert.Alert, error) {
	var alerts []alert.Alert
	if err := s.db.WithContext(ctx).
		Where("company_id = ? AND resolved = false", companyID).
		Order("created_at DESC").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}
