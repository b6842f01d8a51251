package domain

import (
	"context"
	"time"
)

// TransactionType enumerates ledger entry kinds
type TransactionType string

// Ledger entry kinds
const (
	TransactionCheckIn  TransactionType = "check_in"
	TransactionCheckOut TransactionType = "check_out"
	TransactionAdjust   TransactionType = "adjust"
)

// QuarantineNotePrefix marks check_out entries that removed a unit from circulation.
const QuarantineNotePrefix = "[QUARANTINE]"

// Transaction is an immutable ledger entry. Quantity is positive for check_in
// and check_out and a signed delta of AvailableQuantity for adjust. TotalDelta
// is the signed change of TotalQuantity an adjust made; it counts toward lot
// capacity and is zero on every other entry.
type Transaction struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	ClinicID         uint            `json:"clinic_id" gorm:"not null;index"`
	UnitID           uint            `json:"unit_id" gorm:"not null;index"`
	Type             TransactionType `json:"type" gorm:"type:varchar(16);not null"`
	Quantity         int             `json:"quantity" gorm:"not null"`
	TotalDelta       int             `json:"total_delta,omitempty" gorm:"not null;default:0"`
	UserID           uint            `json:"user_id" gorm:"not null"`
	PatientName      string          `json:"patient_name,omitempty"`
	PatientReference string          `json:"patient_reference,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	ReversesID       *uint           `json:"reverses_id,omitempty" gorm:"index"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName specifies the table name
func (Transaction) TableName() string {
	return "transactions"
}

// IsQuarantine reports whether the entry is a quarantine checkout
func (t Transaction) IsQuarantine() bool {
	return t.Type == TransactionCheckOut && len(t.Notes) >= len(QuarantineNotePrefix) &&
		t.Notes[:len(QuarantineNotePrefix)] == QuarantineNotePrefix
}

// PatientInfo identifies who received a dispensation
type PatientInfo struct {
	Name      string `json:"name,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Actor is the resolved caller identity; every query and write is scoped by ClinicID.
type Actor struct {
	UserID   uint
	ClinicID uint
}

// Validate rejects an unresolved caller
func (a Actor) Validate() error {
	if a.UserID == 0 || a.ClinicID == 0 {
		return Invalid("caller identity and clinic scope are required")
	}
	return nil
}

// TransactionRepository is the append-only ledger. There is no update or delete.
type TransactionRepository interface {
	Append(ctx context.Context, txn *Transaction) error
	// ListForUnit returns entries newest first.
	ListForUnit(ctx context.Context, clinicID, unitID uint, limit, offset int) ([]Transaction, error)
}
