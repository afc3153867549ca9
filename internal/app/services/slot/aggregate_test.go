package slot

import (
	"testing"

	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/stretchr/testify/assert"
)

func foldedAggregate(t *testing.T, slotID string, events ...models.StoredEvent) *aggregate {
	t.Helper()
	agg := newAggregate(slotID)
	assert.NoError(t, agg.replay(events))
	return agg
}

func storedEvent(t *testing.T, slotID, eventType string, payload interface{}) models.StoredEvent {
	t.Helper()
	stored, err := models.NewStoredEvent(slotID, eventType, payload)
	assert.NoError(t, err)
	return stored
}

func createdEvent(t *testing.T, slotID string, maxQuantity int) models.StoredEvent {
	return storedEvent(t, slotID, models.SlotEventCreated, models.SlotCreated{
		SlotID:      slotID,
		Date:        "2026-09-14",
		Shift:       int(models.ShiftMorning),
		PackageID:   "pkg-basic",
		MaxQuantity: maxQuantity,
	})
}

func lockedEvent(t *testing.T, slotID, bookingID, fingerprint string) models.StoredEvent {
	return storedEvent(t, slotID, models.SlotEventLocked, models.SlotLocked{
		SlotID:      slotID,
		BookingID:   bookingID,
		Fingerprint: fingerprint,
	})
}

func TestAggregateCreate(t *testing.T) {

	t.Run("New Slot", func(t *testing.T) {
		agg := newAggregate("slot-1")
		event, err := agg.create(&models.CreateSlotCommand{
			SlotID:      "slot-1",
			Date:        "2026-09-14",
			Shift:       int(models.ShiftAfternoon),
			PackageID:   "pkg-basic",
			MaxQuantity: 50,
		})
		assert.NoError(t, err)
		assert.NotNil(t, event, "creating a fresh slot should yield an event")
		assert.Equal(t, 50, event.MaxQuantity)
	})

	t.Run("Existing Slot Is A No-Op", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1", createdEvent(t, "slot-1", 50))
		event, err := agg.create(&models.CreateSlotCommand{SlotID: "slot-1", MaxQuantity: 50})
		assert.NoError(t, err)
		assert.Nil(t, event, "re-creating an existing slot should yield no event")
	})

	t.Run("Negative Capacity Rejected", func(t *testing.T) {
		agg := newAggregate("slot-1")
		_, err := agg.create(&models.CreateSlotCommand{SlotID: "slot-1", MaxQuantity: -1})
		assert.Error(t, err)
	})
}

func TestAggregateLock(t *testing.T) {

	t.Run("Lock Decrements Remaining", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1", createdEvent(t, "slot-1", 2))
		event, err := agg.lock(&models.LockSlotCommand{
			SlotID: "slot-1", BookingID: "booking-1", Fingerprint: "fp-aaaa-0001",
		})
		assert.NoError(t, err)
		assert.Equal(t, "booking-1", event.BookingID)

		assert.NoError(t, agg.apply(lockedEvent(t, "slot-1", "booking-1", "fp-aaaa-0001")))
		assert.Equal(t, 1, agg.remaining())
	})

	t.Run("Full Slot Unavailable", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1",
			createdEvent(t, "slot-1", 1),
			lockedEvent(t, "slot-1", "booking-1", "fp-aaaa-0001"),
		)
		_, err := agg.lock(&models.LockSlotCommand{
			SlotID: "slot-1", BookingID: "booking-2", Fingerprint: "fp-bbbb-0002",
		})
		customErr, ok := err.(*exceptions.CustomError)
		assert.True(t, ok)
		assert.Equal(t, constvars.StatusConflict, customErr.StatusCode)
		assert.Equal(t, constvars.ErrClientSlotUnavailable, customErr.ClientMessage)
	})

	t.Run("Duplicate Fingerprint Conflicts Even With Capacity Left", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1",
			createdEvent(t, "slot-1", 10),
			lockedEvent(t, "slot-1", "booking-1", "fp-aaaa-0001"),
		)
		_, err := agg.lock(&models.LockSlotCommand{
			SlotID: "slot-1", BookingID: "booking-2", Fingerprint: "fp-aaaa-0001",
		})
		customErr, ok := err.(*exceptions.CustomError)
		assert.True(t, ok)
		assert.Equal(t, constvars.ErrClientSlotLockConflict, customErr.ClientMessage)
	})

	t.Run("Unknown Slot", func(t *testing.T) {
		agg := newAggregate("slot-missing")
		_, err := agg.lock(&models.LockSlotCommand{SlotID: "slot-missing", Fingerprint: "fp-aaaa-0001"})
		assert.Error(t, err)
	})
}

func TestAggregateRelease(t *testing.T) {

	t.Run("Release Restores Capacity", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1",
			createdEvent(t, "slot-1", 1),
			lockedEvent(t, "slot-1", "booking-1", "fp-aaaa-0001"),
		)
		event, err := agg.release(&models.ReleaseSlotLockCommand{SlotID: "slot-1", Fingerprint: "fp-aaaa-0001"})
		assert.NoError(t, err)

		released := storedEvent(t, "slot-1", models.SlotEventLockReleased, event)
		assert.NoError(t, agg.apply(released))
		assert.Equal(t, 1, agg.remaining(), "releasing the only hold should free the slot again")
	})

	t.Run("Release Unknown Fingerprint Fails", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1", createdEvent(t, "slot-1", 1))
		_, err := agg.release(&models.ReleaseSlotLockCommand{SlotID: "slot-1", Fingerprint: "fp-zzzz-0009"})
		customErr, ok := err.(*exceptions.CustomError)
		assert.True(t, ok)
		assert.Equal(t, constvars.StatusNotFound, customErr.StatusCode)
	})
}

func TestAggregateUpdateMaxQuantity(t *testing.T) {

	t.Run("Cannot Shrink Below Granted Holds", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1",
			createdEvent(t, "slot-1", 5),
			lockedEvent(t, "slot-1", "booking-1", "fp-aaaa-0001"),
			lockedEvent(t, "slot-1", "booking-2", "fp-bbbb-0002"),
		)
		_, err := agg.updateMaxQuantity(&models.UpdateSlotMaxQuantityCommand{SlotID: "slot-1", MaxQuantity: 1})
		customErr, ok := err.(*exceptions.CustomError)
		assert.True(t, ok)
		assert.Equal(t, constvars.ErrClientSlotInvalidCapacity, customErr.ClientMessage)
	})

	t.Run("Shrink To Exactly Granted Holds", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1",
			createdEvent(t, "slot-1", 5),
			lockedEvent(t, "slot-1", "booking-1", "fp-aaaa-0001"),
		)
		event, err := agg.updateMaxQuantity(&models.UpdateSlotMaxQuantityCommand{SlotID: "slot-1", MaxQuantity: 1})
		assert.NoError(t, err)
		assert.Equal(t, 1, event.NewMaxQuantity)

		assert.NoError(t, agg.apply(storedEvent(t, "slot-1", models.SlotEventMaxQuantityUpdated, event)))
		assert.Equal(t, 0, agg.remaining())
	})

	t.Run("Unchanged Capacity Is A No-Op", func(t *testing.T) {
		agg := foldedAggregate(t, "slot-1", createdEvent(t, "slot-1", 5))
		event, err := agg.updateMaxQuantity(&models.UpdateSlotMaxQuantityCommand{SlotID: "slot-1", MaxQuantity: 5})
		assert.NoError(t, err)
		assert.Nil(t, event)
	})
}
