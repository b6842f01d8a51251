package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

// GormDrugRepository stores the local copy of the drug catalog
type GormDrugRepository struct {
	db *gorm.DB
}

func NewGormDrugRepository(db *gorm.DB) *GormDrugRepository {
	return &GormDrugRepository{db: db}
}

func (r *GormDrugRepository) Create(ctx context.Context, drug *domain.Drug) error {
	if err := r.db.WithContext(ctx).Create(drug).Error; err != nil {
		return fmt.Errorf("failed to create drug: %w", err)
	}
	return nil
}

func (r *GormDrugRepository) FindByID(ctx context.Context, id uint) (*domain.Drug, error) {
	var drug domain.Drug
	if err := r.db.WithContext(ctx).First(&drug, id).Error; err != nil {
		return nil, translateError(err, domain.ErrDrugNotFound)
	}
	return &drug, nil
}

func (r *GormDrugRepository) FindByNDC(ctx context.Context, ndc string) (*domain.Drug, error) {
	var drug domain.Drug
	err := r.db.WithContext(ctx).Where("ndc = ?", strings.TrimSpace(ndc)).First(&drug).Error
	if err != nil {
		return nil, translateError(err, domain.ErrDrugNotFound)
	}
	return &drug, nil
}

// FindMatching looks drugs up by brand or generic name, strength and strength unit
func (r *GormDrugRepository) FindMatching(ctx context.Context, matcher domain.DrugMatcher) ([]domain.Drug, error) {
	name := strings.TrimSpace(matcher.Name)
	var drugs []domain.Drug
	err := r.db.WithContext(ctx).
		Where("(LOWER(name) = LOWER(?) OR LOWER(generic_name) = LOWER(?)) AND strength = ? AND LOWER(strength_unit) = LOWER(?)",
			name, name, matcher.Strength, strings.TrimSpace(matcher.StrengthUnit)).
		Order("id ASC").
		Find(&drugs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to match drugs: %w", err)
	}
	return drugs, nil
}
