package slot

import (
	"context"
	"testing"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/app/services/shared/bus"
	"clinic-booking-service/internal/app/services/shared/eventstore"
	"clinic-booking-service/internal/app/services/shared/locker"
	"clinic-booking-service/internal/pkg/constvars"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestUsecase(t *testing.T) (contracts.SlotUsecase, *bus.MemoryBus) {
	t.Helper()
	memBus := bus.NewMemoryBus()
	usecase := &slotUsecase{
		store:  eventstore.NewMemoryEventStore(),
		locker: locker.NewMemoryLocker(),
		events: memBus,
		log:    zap.NewNop(),
	}
	return usecase, memBus
}

func mustCreateSlot(t *testing.T, usecase contracts.SlotUsecase, slotID string, maxQuantity int) {
	t.Helper()
	err := usecase.Create(context.Background(), &models.CreateSlotCommand{
		SlotID:      slotID,
		Date:        "2026-09-14",
		Shift:       int(models.ShiftMorning),
		PackageID:   "pkg-basic",
		MaxQuantity: maxQuantity,
	})
	assert.NoError(t, err)
}

func TestSlotUsecaseLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("Create Then Lock Then Release", func(t *testing.T) {
		usecase, memBus := newTestUsecase(t)
		mustCreateSlot(t, usecase, "slot-1", 2)

		err := usecase.Lock(ctx, &models.LockSlotCommand{
			SlotID: "slot-1", BookingID: "booking-1", Fingerprint: "fp-aaaa-0001",
		})
		assert.NoError(t, err)

		snapshot, err := usecase.Get(ctx, "slot-1")
		assert.NoError(t, err)
		assert.Equal(t, 1, snapshot.RemainingQuantity)
		assert.Len(t, snapshot.LockedReservations, 1)

		err = usecase.Release(ctx, &models.ReleaseSlotLockCommand{
			SlotID: "slot-1", Fingerprint: "fp-aaaa-0001",
		})
		assert.NoError(t, err)

		snapshot, err = usecase.Get(ctx, "slot-1")
		assert.NoError(t, err)
		assert.Equal(t, 2, snapshot.RemainingQuantity)

		assert.Len(t, memBus.PublishedNamed(constvars.EventSlotCreated), 1)
		assert.Len(t, memBus.PublishedNamed(constvars.EventSlotLocked), 1)
		assert.Len(t, memBus.PublishedNamed(constvars.EventSlotLockReleased), 1)
	})

	t.Run("Locked Event Is Correlated By Booking ID", func(t *testing.T) {
		usecase, memBus := newTestUsecase(t)
		mustCreateSlot(t, usecase, "slot-1", 2)

		err := usecase.Lock(ctx, &models.LockSlotCommand{
			SlotID: "slot-1", BookingID: "booking-7", Fingerprint: "fp-aaaa-0001",
		})
		assert.NoError(t, err)

		published := memBus.PublishedNamed(constvars.EventSlotLocked)
		assert.Len(t, published, 1)
		assert.Equal(t, "booking-7", published[0].CorrelationID)
	})

	t.Run("Resent Create Publishes Nothing", func(t *testing.T) {
		usecase, memBus := newTestUsecase(t)
		mustCreateSlot(t, usecase, "slot-1", 2)
		mustCreateSlot(t, usecase, "slot-1", 2)

		assert.Len(t, memBus.PublishedNamed(constvars.EventSlotCreated), 1,
			"a duplicate create command should not publish a second event")
	})

	t.Run("Get Unknown Slot", func(t *testing.T) {
		usecase, _ := newTestUsecase(t)
		_, err := usecase.Get(ctx, "slot-missing")
		assert.Error(t, err)
	})
}

func TestSlotCommandConsumer(t *testing.T) {
	ctx := context.Background()

	t.Run("Release On Missing Hold Acks Instead Of Requeueing", func(t *testing.T) {
		usecase, _ := newTestUsecase(t)
		mustCreateSlot(t, usecase, "slot-1", 1)

		consumer := NewCommandConsumer(usecase, zap.NewNop())
		envelope, err := models.NewEnvelope("msg-1", constvars.CmdReleaseSlotLock, "slot-1",
			models.ReleaseSlotLockCommand{SlotID: "slot-1", Fingerprint: "fp-gone-0001"})
		assert.NoError(t, err)

		assert.NoError(t, consumer.handle(ctx, envelope),
			"a resent release for an already-released hold must not error")
	})

	t.Run("Lock Command Routes Into The Aggregate", func(t *testing.T) {
		usecase, memBus := newTestUsecase(t)
		mustCreateSlot(t, usecase, "slot-1", 1)

		consumer := NewCommandConsumer(usecase, zap.NewNop())
		envelope, err := models.NewEnvelope("msg-2", constvars.CmdLockSlot, "booking-1",
			models.LockSlotCommand{SlotID: "slot-1", BookingID: "booking-1", Fingerprint: "fp-aaaa-0001"})
		assert.NoError(t, err)
		assert.NoError(t, consumer.handle(ctx, envelope))

		assert.Len(t, memBus.PublishedNamed(constvars.EventSlotLocked), 1)
	})
}

func TestDeterministicSlotID(t *testing.T) {
	first := DeterministicSlotID("2026-09-14", models.ShiftMorning, "pkg-basic")
	again := DeterministicSlotID("2026-09-14", models.ShiftMorning, "pkg-basic")
	other := DeterministicSlotID("2026-09-14", models.ShiftAfternoon, "pkg-basic")

	assert.Equal(t, first, again, "same date, shift and package should resolve to one id")
	assert.NotEqual(t, first, other)
}
