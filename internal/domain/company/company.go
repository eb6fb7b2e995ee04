package company

import (
	"github.com/tributa/backend/internal/domain/shared"
)

// TaxRegime identifies which Angolan VAT regime a company files under
type TaxRegime string

const (
	// RegimeSimplified pays a flat rate on turnover and cannot deduct input tax
	RegimeSimplified TaxRegime = "simplified"
	// RegimeGeneral charges output tax and deducts input tax
	RegimeGeneral TaxRegime = "general"
	// RegimeExclusion is below the registration threshold entirely
	RegimeExclusion TaxRegime = "exclusion"
)

// Company is a taxpayer whose fiscal documents flow through the platform
type Company struct {
	shared.BaseEntity
	Name      string    `gorm:"type:varchar(200);not null"`
	TaxID     string    `gorm:"type:varchar(50);index"`
	TaxRegime TaxRegime `gorm:"type:varchar(20);not null;default:'simplified'"`
}

// TableName returns the table name for GORM
func (Company) TableName() string {
	return "companies"
}

// IsSimplified reports whether the company files under the simplified regime
func (c *Company) IsSimplified() bool {
	return c.TaxRegime == RegimeSimplified
}
