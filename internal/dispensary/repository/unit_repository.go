package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

// GormUnitRepository implements domain.UnitRepository. Quantity mutations are
// single conditional UPDATEs so concurrent callers never lose an update.
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GORM unit repository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// Create inserts a new unit
func (r *GormUnitRepository) Create(ctx context.Context, unit *domain.Unit) error {
	if err := r.db.WithContext(ctx).Create(unit).Error; err != nil {
		return fmt.Errorf("failed to create unit: %w", translateError(err, domain.ErrUnitNotFound))
	}
	return nil
}

// FindByID retrieves a unit scoped to a clinic
func (r *GormUnitRepository) FindByID(ctx context.Context, clinicID, id uint) (*domain.Unit, error) {
	return findUnit(r.db.WithContext(ctx), clinicID, id)
}

func findUnit(db *gorm.DB, clinicID, id uint) (*domain.Unit, error) {
	var unit domain.Unit
	err := db.Where("clinic_id = ?", clinicID).First(&unit, id).Error
	if err != nil {
		return nil, translateError(err, domain.ErrUnitNotFound)
	}
	return &unit, nil
}

// ListAvailable returns units with stock left, earliest expiry first
func (r *GormUnitRepository) ListAvailable(ctx context.Context, clinicID uint, drugIDs []uint) ([]domain.Unit, error) {
	if len(drugIDs) == 0 {
		return nil, nil
	}
	var units []domain.Unit
	err := r.db.WithContext(ctx).
		Where("clinic_id = ? AND drug_id IN ? AND available_quantity > 0", clinicID, drugIDs).
		Order("expiry_date ASC, created_at ASC, id ASC").
		Find(&units).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list available units: %w", translateError(err, domain.ErrUnitNotFound))
	}
	return units, nil
}

// SumTotalByLot sums TotalQuantity over the live units of a lot
func (r *GormUnitRepository) SumTotalByLot(ctx context.Context, lotID uint) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&domain.Unit{}).
		Where("lot_id = ?", lotID).
		Select("COALESCE(SUM(total_quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum lot %d: %w", lotID, translateError(err, domain.ErrLotNotFound))
	}
	return int(total), nil
}

// TryDecrement reduces AvailableQuantity iff enough is left
func (r *GormUnitRepository) TryDecrement(ctx context.Context, clinicID, id uint, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.Invalid("decrement amount must be positive, got %d", amount)
	}
	var available int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Unit{}).
			Where("id = ? AND clinic_id = ? AND available_quantity >= ?", id, clinicID, amount).
			Updates(map[string]any{
				"available_quantity": gorm.Expr("available_quantity - ?", amount),
				"updated_at":         time.Now(),
			})
		if res.Error != nil {
			return translateError(res.Error, domain.ErrUnitNotFound)
		}
		unit, err := findUnit(tx, clinicID, id)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return &domain.InsufficientQuantityError{UnitID: id, Requested: amount, Available: unit.AvailableQuantity}
		}
		available = unit.AvailableQuantity
		return nil
	})
	if err != nil {
		return 0, err
	}
	return available, nil
}

// drainAttempts bounds the compare-and-set loop in Drain
const drainAttempts = 5

// Drain zeroes AvailableQuantity with a conditional UPDATE on the value just
// read, retrying while concurrent writers keep changing it.
func (r *GormUnitRepository) Drain(ctx context.Context, clinicID, id uint) (*domain.Unit, int, error) {
	db := r.db.WithContext(ctx)
	for attempt := 0; attempt < drainAttempts; attempt++ {
		unit, err := findUnit(db, clinicID, id)
		if err != nil {
			return nil, 0, err
		}
		drained := unit.AvailableQuantity
		if drained == 0 {
			return unit, 0, nil
		}

		res := db.Model(&domain.Unit{}).
			Where("id = ? AND clinic_id = ? AND available_quantity = ?", id, clinicID, drained).
			Updates(map[string]any{
				"available_quantity": 0,
				"updated_at":         time.Now(),
			})
		if res.Error != nil {
			return nil, 0, translateError(res.Error, domain.ErrUnitNotFound)
		}
		if res.RowsAffected == 1 {
			unit.AvailableQuantity = 0
			return unit, drained, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: unit %d kept changing while being drained",
		domain.ErrConcurrentModification, id)
}

// Increment restores quantity taken by TryDecrement or Drain
func (r *GormUnitRepository) Increment(ctx context.Context, clinicID, id uint, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.Invalid("increment amount must be positive, got %d", amount)
	}
	var available int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Unit{}).
			Where("id = ? AND clinic_id = ? AND available_quantity + ? <= total_quantity", id, clinicID, amount).
			Updates(map[string]any{
				"available_quantity": gorm.Expr("available_quantity + ?", amount),
				"updated_at":         time.Now(),
			})
		if res.Error != nil {
			return translateError(res.Error, domain.ErrUnitNotFound)
		}
		unit, err := findUnit(tx, clinicID, id)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: incrementing unit %d by %d would exceed its total %d",
				domain.ErrConcurrentModification, id, amount, unit.TotalQuantity)
		}
		available = unit.AvailableQuantity
		return nil
	})
	if err != nil {
		return 0, err
	}
	return available, nil
}

// SetQuantities applies an administrative correction with compare-and-set on the quantity pair
func (r *GormUnitRepository) SetQuantities(ctx context.Context, clinicID, id uint, expected domain.UnitQuantities, correction domain.UnitCorrection) (*domain.Unit, error) {
	updates := map[string]any{"updated_at": time.Now()}
	if correction.TotalQuantity != nil {
		updates["total_quantity"] = *correction.TotalQuantity
	}
	if correction.AvailableQuantity != nil {
		updates["available_quantity"] = *correction.AvailableQuantity
	}
	if correction.ExpiryDate != nil {
		updates["expiry_date"] = *correction.ExpiryDate
	}
	if correction.Notes != nil {
		updates["notes"] = *correction.Notes
	}

	var updated *domain.Unit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Unit{}).
			Where("id = ? AND clinic_id = ? AND total_quantity = ? AND available_quantity = ?",
				id, clinicID, expected.Total, expected.Available).
			Updates(updates)
		if res.Error != nil {
			return translateError(res.Error, domain.ErrUnitNotFound)
		}
		unit, err := findUnit(tx, clinicID, id)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: unit %d quantities changed to %d/%d",
				domain.ErrConcurrentModification, id, unit.AvailableQuantity, unit.TotalQuantity)
		}
		updated = unit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Discard soft deletes a unit so it stops counting toward capacity and FEFO
func (r *GormUnitRepository) Discard(ctx context.Context, clinicID, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND clinic_id = ?", id, clinicID).
		Delete(&domain.Unit{})
	if res.Error != nil {
		return fmt.Errorf("failed to discard unit: %w", translateError(res.Error, domain.ErrUnitNotFound))
	}
	if res.RowsAffected == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}
