package domain

import (
	"context"
	"time"
)

// Lot represents a donation or intake batch. MaxCapacity, when set, bounds the
// sum of TotalQuantity over every unit ever placed in the lot.
type Lot struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ClinicID    uint      `json:"clinic_id" gorm:"not null;index"`
	Source      string    `json:"source" gorm:"not null"`
	Note        string    `json:"note"`
	MaxCapacity *int      `json:"max_capacity,omitempty"`
	LocationID  uint      `json:"location_id" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Lot) TableName() string {
	return "lots"
}

// LotRepository defines the contract for lot data access
type LotRepository interface {
	Create(ctx context.Context, lot *Lot) error
	FindByID(ctx context.Context, clinicID, id uint) (*Lot, error)
}
