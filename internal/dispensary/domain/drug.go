package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Drug represents a canonical medication identity in the catalog
type Drug struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	Name         string          `json:"name" gorm:"not null;index"`
	GenericName  string          `json:"generic_name" gorm:"index"`
	Strength     decimal.Decimal `json:"strength" gorm:"type:numeric(12,4);not null"`
	StrengthUnit string          `json:"strength_unit" gorm:"not null"`
	Form         string          `json:"form"`
	NDC          string          `json:"ndc" gorm:"uniqueIndex:idx_drugs_ndc,where:ndc <> ''"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (Drug) TableName() string {
	return "drugs"
}

// DrugMatcher selects the drug(s) a checkout draws from. Exactly one of the
// three forms is used, in order of precedence: DrugID, NDC, then the
// (Name, Strength, StrengthUnit) tuple.
type DrugMatcher struct {
	DrugID       uint            `json:"drug_id,omitempty"`
	NDC          string          `json:"ndc,omitempty"`
	Name         string          `json:"medication_name,omitempty"`
	Strength     decimal.Decimal `json:"strength"`
	StrengthUnit string          `json:"strength_unit,omitempty"`
}

// IsZero reports whether the matcher carries no selection at all
func (m DrugMatcher) IsZero() bool {
	return m.DrugID == 0 && strings.TrimSpace(m.NDC) == "" && strings.TrimSpace(m.Name) == ""
}

// Matches reports whether the drug satisfies the name/strength tuple of the matcher.
func (m DrugMatcher) Matches(d Drug) bool {
	name := strings.TrimSpace(m.Name)
	if !strings.EqualFold(d.Name, name) && !strings.EqualFold(d.GenericName, name) {
		return false
	}
	if !d.Strength.Equal(m.Strength) {
		return false
	}
	return strings.EqualFold(d.StrengthUnit, strings.TrimSpace(m.StrengthUnit))
}

// DrugRepository defines the contract for drug catalog data access
type DrugRepository interface {
	Create(ctx context.Context, drug *Drug) error
	FindByID(ctx context.Context, id uint) (*Drug, error)
	FindByNDC(ctx context.Context, ndc string) (*Drug, error)
	FindMatching(ctx context.Context, matcher DrugMatcher) ([]Drug, error)
}

// DrugResolver turns a matcher into the ids of the drugs it denotes.
type DrugResolver interface {
	Resolve(ctx context.Context, matcher DrugMatcher) ([]uint, error)
}
