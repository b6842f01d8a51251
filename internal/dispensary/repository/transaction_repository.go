package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

// GormTransactionRepository is the append-only ledger
type GormTransactionRepository struct {
	db *gorm.DB
}

func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

func (r *GormTransactionRepository) Append(ctx context.Context, txn *domain.Transaction) error {
	if txn.ID != 0 {
		return domain.Invalid("ledger entries are immutable; entry %d already written", txn.ID)
	}
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", translateError(err, domain.ErrUnitNotFound))
	}
	return nil
}

func (r *GormTransactionRepository) ListForUnit(ctx context.Context, clinicID, unitID uint, limit, offset int) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	query := r.db.WithContext(ctx).
		Where("clinic_id = ? AND unit_id = ?", clinicID, unitID).
		Order("created_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return txns, nil
}
