package kafka

import "time"

// DispensationEvent is published after a dispensary write commits
type DispensationEvent struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	ClinicID       uint      `json:"clinic_id"`
	UserID         uint      `json:"user_id"`
	UnitID         uint      `json:"unit_id,omitempty"`
	LotID          uint      `json:"lot_id,omitempty"`
	DrugID         uint      `json:"drug_id,omitempty"`
	Mode           string    `json:"mode,omitempty"`
	Quantity       int       `json:"quantity"`
	TotalDelta     int       `json:"total_delta,omitempty"`
	UnitIDs        []uint    `json:"unit_ids,omitempty"`
	TransactionIDs []uint    `json:"transaction_ids,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// QuarantineRequestedEvent asks the dispensary to pull a unit from circulation
type QuarantineRequestedEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	ClinicID    uint      `json:"clinic_id"`
	UnitID      uint      `json:"unit_id"`
	RequestedBy uint      `json:"requested_by"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeUnitCheckedIn       = "unit.checked_in"
	EventTypeUnitCheckedOut      = "unit.checked_out"
	EventTypeUnitQuarantined     = "unit.quarantined"
	EventTypeUnitAdjusted        = "unit.adjusted"
	EventTypeQuarantineRequested = "unit.quarantine_requested"
)

// Default Kafka topics
const (
	TopicDispensaryEvents   = "dispensary-events"
	TopicQuarantineRequests = "dispensary-quarantine-requests"
)
