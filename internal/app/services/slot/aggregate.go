package slot

import (
	"fmt"

	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
)

// aggregate is the folded state of one slot stream. It is rebuilt from the
// event store on every command, mutated only through apply, and never stores
// derived values that the events cannot reproduce.
type aggregate struct {
	slotID      string
	created     bool
	date        string
	shift       models.Shift
	packageID   string
	maxQuantity int
	locked      []models.LockedReservation
}

func newAggregate(slotID string) *aggregate {
	return &aggregate{slotID: slotID}
}

func (a *aggregate) replay(events []models.StoredEvent) error {
	for _, stored := range events {
		if err := a.apply(stored); err != nil {
			return err
		}
	}
	return nil
}

func (a *aggregate) apply(stored models.StoredEvent) error {
	switch stored.Type {
	case models.SlotEventCreated:
		var event models.SlotCreated
		if err := json.Unmarshal(stored.Data, &event); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		a.created = true
		a.date = event.Date
		a.shift = models.Shift(event.Shift)
		a.packageID = event.PackageID
		a.maxQuantity = event.MaxQuantity

	case models.SlotEventLocked:
		var event models.SlotLocked
		if err := json.Unmarshal(stored.Data, &event); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		a.locked = append(a.locked, models.LockedReservation{
			BookingID:   event.BookingID,
			Fingerprint: event.Fingerprint,
		})

	case models.SlotEventLockReleased:
		var event models.SlotLockReleased
		if err := json.Unmarshal(stored.Data, &event); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		for i, reservation := range a.locked {
			if reservation.Fingerprint == event.Fingerprint {
				a.locked = append(a.locked[:i], a.locked[i+1:]...)
				break
			}
		}

	case models.SlotEventMaxQuantityUpdated:
		var event models.SlotMaxQuantityUpdated
		if err := json.Unmarshal(stored.Data, &event); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		a.maxQuantity = event.NewMaxQuantity

	default:
		return exceptions.ErrServerProcess(fmt.Errorf("unknown slot event type: %s", stored.Type))
	}
	return nil
}

func (a *aggregate) remaining() int {
	return a.maxQuantity - len(a.locked)
}

func (a *aggregate) holdsFingerprint(fingerprint string) bool {
	for _, reservation := range a.locked {
		if reservation.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// create initializes the slot. Re-creating an existing slot yields no event,
// so the daily generator can resend the same deterministic command safely.
func (a *aggregate) create(cmd *models.CreateSlotCommand) (*models.SlotCreated, error) {
	if a.created {
		return nil, nil
	}
	if cmd.MaxQuantity < 0 {
		return nil, exceptions.ErrSlotInvalidCapacity(nil)
	}
	if _, err := models.ShiftFromCode(cmd.Shift); err != nil {
		return nil, exceptions.ErrInputValidation(err)
	}
	return &models.SlotCreated{
		SlotID:      a.slotID,
		Date:        cmd.Date,
		Shift:       cmd.Shift,
		PackageID:   cmd.PackageID,
		MaxQuantity: cmd.MaxQuantity,
	}, nil
}

// lock places a hold for one booking. A fingerprint already holding a lock is
// a conflict, and a full slot is unavailable.
func (a *aggregate) lock(cmd *models.LockSlotCommand) (*models.SlotLocked, error) {
	if !a.created {
		return nil, exceptions.ErrSlotNotFound(nil, a.slotID)
	}
	if a.holdsFingerprint(cmd.Fingerprint) {
		return nil, exceptions.ErrSlotLockConflict(nil)
	}
	if a.remaining() <= 0 {
		return nil, exceptions.ErrSlotUnavailable(nil)
	}
	return &models.SlotLocked{
		SlotID:      a.slotID,
		BookingID:   cmd.BookingID,
		Fingerprint: cmd.Fingerprint,
		Name:        cmd.Name,
		Phone:       cmd.Phone,
		Email:       cmd.Email,
	}, nil
}

func (a *aggregate) release(cmd *models.ReleaseSlotLockCommand) (*models.SlotLockReleased, error) {
	if !a.created {
		return nil, exceptions.ErrSlotNotFound(nil, a.slotID)
	}
	if !a.holdsFingerprint(cmd.Fingerprint) {
		return nil, exceptions.ErrSlotLockNotFound(nil)
	}
	return &models.SlotLockReleased{
		SlotID:      a.slotID,
		Fingerprint: cmd.Fingerprint,
	}, nil
}

// updateMaxQuantity shrinks or grows capacity but never below the holds
// already granted.
func (a *aggregate) updateMaxQuantity(cmd *models.UpdateSlotMaxQuantityCommand) (*models.SlotMaxQuantityUpdated, error) {
	if !a.created {
		return nil, exceptions.ErrSlotNotFound(nil, a.slotID)
	}
	if cmd.MaxQuantity < 0 || cmd.MaxQuantity < len(a.locked) {
		return nil, exceptions.ErrSlotInvalidCapacity(nil)
	}
	if cmd.MaxQuantity == a.maxQuantity {
		return nil, nil
	}
	return &models.SlotMaxQuantityUpdated{
		SlotID:         a.slotID,
		OldMaxQuantity: a.maxQuantity,
		NewMaxQuantity: cmd.MaxQuantity,
	}, nil
}
