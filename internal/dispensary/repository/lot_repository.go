package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

type GormLotRepository struct {
	db *gorm.DB
}

func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

func (r *GormLotRepository) Create(ctx context.Context, lot *domain.Lot) error {
	if err := r.db.WithContext(ctx).Create(lot).Error; err != nil {
		return fmt.Errorf("failed to create lot: %w", err)
	}
	return nil
}

func (r *GormLotRepository) FindByID(ctx context.Context, clinicID, id uint) (*domain.Lot, error) {
	var lot domain.Lot
	err := r.db.WithContext(ctx).Where("clinic_id = ?", clinicID).First(&lot, id).Error
	if err != nil {
		return nil, translateError(err, domain.ErrLotNotFound)
	}
	return &lot, nil
}

type GormLocationRepository struct {
	db *gorm.DB
}

func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

func (r *GormLocationRepository) Create(ctx context.Context, location *domain.Location) error {
	if err := r.db.WithContext(ctx).Create(location).Error; err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func (r *GormLocationRepository) FindByID(ctx context.Context, clinicID, id uint) (*domain.Location, error) {
	var location domain.Location
	err := r.db.WithContext(ctx).Where("clinic_id = ?", clinicID).First(&location, id).Error
	if err != nil {
		return nil, translateError(err, domain.ErrLocationNotFound)
	}
	return &location, nil
}
