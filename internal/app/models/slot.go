package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type Shift int

const (
	ShiftAfternoon Shift = 0
	ShiftMorning   Shift = 1
)

func ShiftFromCode(code int) (Shift, error) {
	switch code {
	case 0:
		return ShiftAfternoon, nil
	case 1:
		return ShiftMorning, nil
	default:
		return 0, fmt.Errorf("invalid shift code: %d", code)
	}
}

func (s Shift) String() string {
	if s == ShiftMorning {
		return "MORNING"
	}
	return "AFTERNOON"
}

// LockedReservation is one active hold on a slot's capacity. Fingerprints are
// unique within a slot; the booking id links the hold to its saga instance.
type LockedReservation struct {
	BookingID   string `json:"booking_id"`
	Fingerprint string `json:"fingerprint"`
}

// Slot event types stored in the per-slot event stream.
const (
	SlotEventCreated            = "SlotCreated"
	SlotEventLocked             = "SlotLocked"
	SlotEventLockReleased       = "SlotLockReleased"
	SlotEventMaxQuantityUpdated = "SlotMaxQuantityUpdated"
)

type SlotCreated struct {
	SlotID      string `json:"slot_id"`
	Date        string `json:"date"`
	Shift       int    `json:"shift"`
	PackageID   string `json:"package_id"`
	MaxQuantity int    `json:"max_quantity"`
}

type SlotLocked struct {
	SlotID      string `json:"slot_id"`
	BookingID   string `json:"booking_id"`
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

type SlotLockReleased struct {
	SlotID      string `json:"slot_id"`
	Fingerprint string `json:"fingerprint"`
}

type SlotMaxQuantityUpdated struct {
	SlotID         string `json:"slot_id"`
	OldMaxQuantity int    `json:"old_max_quantity"`
	NewMaxQuantity int    `json:"new_max_quantity"`
}

// StoredEvent is one appended fact in a stream. Seq is assigned by the store
// and is contiguous per stream starting at 1.
type StoredEvent struct {
	StreamID   string          `bson:"stream_id" json:"stream_id"`
	Seq        int64           `bson:"seq" json:"seq"`
	Type       string          `bson:"type" json:"type"`
	Data       json.RawMessage `bson:"data" json:"data"`
	OccurredAt time.Time       `bson:"occurred_at" json:"occurred_at"`
}

func NewStoredEvent(streamID, eventType string, payload interface{}) (StoredEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return StoredEvent{}, err
	}
	return StoredEvent{
		StreamID:   streamID,
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}, nil
}
