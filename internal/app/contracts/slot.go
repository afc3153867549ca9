package contracts

import (
	"context"

	"clinic-booking-service/internal/app/models"
)

// SlotUsecase handles slot commands against the event-sourced aggregate.
// Validation failures (LockConflict, SlotUnavailable, LockNotFound,
// InvalidCapacity) are returned synchronously to the caller.
type SlotUsecase interface {
	Create(ctx context.Context, cmd *models.CreateSlotCommand) error
	Lock(ctx context.Context, cmd *models.LockSlotCommand) error
	Release(ctx context.Context, cmd *models.ReleaseSlotLockCommand) error
	UpdateMaxQuantity(ctx context.Context, cmd *models.UpdateSlotMaxQuantityCommand) error
	Get(ctx context.Context, slotID string) (*SlotSnapshot, error)
}

// SlotSnapshot is the folded current state of one slot.
type SlotSnapshot struct {
	SlotID             string
	Date               string
	Shift              models.Shift
	PackageID          string
	MaxQuantity        int
	RemainingQuantity  int
	LockedReservations []models.LockedReservation
}
