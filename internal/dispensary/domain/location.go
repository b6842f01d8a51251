package domain

import (
	"context"
	"time"
)

// Temperature classes a location can hold
const (
	TemperatureRefrigerated    = "refrigerated"
	TemperatureRoomTemperature = "room_temperature"
)

// Location represents a physical storage place owned by a clinic
type Location struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ClinicID    uint      `json:"clinic_id" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Temperature string    `json:"temperature" gorm:"not null;default:'room_temperature'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Location) TableName() string {
	return "locations"
}

// ValidTemperature reports whether t is a known temperature class
func ValidTemperature(t string) bool {
	return t == TemperatureRefrigerated || t == TemperatureRoomTemperature
}

// LocationRepository defines the contract for location data access
type LocationRepository interface {
	Create(ctx context.Context, location *Location) error
	FindByID(ctx context.Context, clinicID, id uint) (*Location, error)
}
