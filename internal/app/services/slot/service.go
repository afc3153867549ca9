package slot

import (
	"context"
	"time"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	slotLockKeyPrefix = "slot:write:"
	slotLockTTL       = 5 * time.Second
)

// slotUsecase runs commands against the event-sourced slot streams. A per-slot
// Redis lock serializes writers so load-decide-append stays atomic across
// replicas.
type slotUsecase struct {
	store  contracts.EventStore
	locker contracts.LockerService
	events contracts.EventPublisher
	log    *zap.Logger
}

func NewSlotUsecase(
	store contracts.EventStore,
	locker contracts.LockerService,
	events contracts.EventPublisher,
	logger *zap.Logger,
) contracts.SlotUsecase {
	return &slotUsecase{
		store:  store,
		locker: locker,
		events: events,
		log:    logger,
	}
}

func (u *slotUsecase) Create(ctx context.Context, cmd *models.CreateSlotCommand) error {
	u.log.Info("slotUsecase.Create called", zap.String(constvars.LoggingSlotIDKey, cmd.SlotID))

	return u.withSlotLock(ctx, cmd.SlotID, func(agg *aggregate) (string, string, interface{}, error) {
		event, err := agg.create(cmd)
		if err != nil || event == nil {
			return "", "", nil, err
		}
		return models.SlotEventCreated, constvars.EventSlotCreated, event, nil
	}, cmd.SlotID)
}

func (u *slotUsecase) Lock(ctx context.Context, cmd *models.LockSlotCommand) error {
	u.log.Info("slotUsecase.Lock called",
		zap.String(constvars.LoggingSlotIDKey, cmd.SlotID),
		zap.String(constvars.LoggingBookingIDKey, cmd.BookingID),
		zap.String(constvars.LoggingFingerprintKey, cmd.Fingerprint),
	)

	return u.withSlotLock(ctx, cmd.SlotID, func(agg *aggregate) (string, string, interface{}, error) {
		event, err := agg.lock(cmd)
		if err != nil || event == nil {
			return "", "", nil, err
		}
		return models.SlotEventLocked, constvars.EventSlotLocked, event, nil
	}, cmd.BookingID)
}

func (u *slotUsecase) Release(ctx context.Context, cmd *models.ReleaseSlotLockCommand) error {
	u.log.Info("slotUsecase.Release called",
		zap.String(constvars.LoggingSlotIDKey, cmd.SlotID),
		zap.String(constvars.LoggingFingerprintKey, cmd.Fingerprint),
	)

	return u.withSlotLock(ctx, cmd.SlotID, func(agg *aggregate) (string, string, interface{}, error) {
		event, err := agg.release(cmd)
		if err != nil || event == nil {
			return "", "", nil, err
		}
		return models.SlotEventLockReleased, constvars.EventSlotLockReleased, event, nil
	}, cmd.Fingerprint)
}

func (u *slotUsecase) UpdateMaxQuantity(ctx context.Context, cmd *models.UpdateSlotMaxQuantityCommand) error {
	u.log.Info("slotUsecase.UpdateMaxQuantity called",
		zap.String(constvars.LoggingSlotIDKey, cmd.SlotID),
		zap.Int("max_quantity", cmd.MaxQuantity),
	)

	return u.withSlotLock(ctx, cmd.SlotID, func(agg *aggregate) (string, string, interface{}, error) {
		event, err := agg.updateMaxQuantity(cmd)
		if err != nil || event == nil {
			return "", "", nil, err
		}
		return models.SlotEventMaxQuantityUpdated, constvars.EventSlotMaxQuantityUpdated, event, nil
	}, cmd.SlotID)
}

func (u *slotUsecase) Get(ctx context.Context, slotID string) (*contracts.SlotSnapshot, error) {
	events, err := u.store.Load(ctx, slotID)
	if err != nil {
		return nil, err
	}

	agg := newAggregate(slotID)
	if err := agg.replay(events); err != nil {
		return nil, err
	}
	if !agg.created {
		return nil, exceptions.ErrSlotNotFound(nil, slotID)
	}

	reservations := make([]models.LockedReservation, len(agg.locked))
	copy(reservations, agg.locked)
	return &contracts.SlotSnapshot{
		SlotID:             slotID,
		Date:               agg.date,
		Shift:              agg.shift,
		PackageID:          agg.packageID,
		MaxQuantity:        agg.maxQuantity,
		RemainingQuantity:  agg.remaining(),
		LockedReservations: reservations,
	}, nil
}

// withSlotLock loads the stream under the per-slot lock, asks decide for an
// event, appends it and publishes it with the given correlation id. A decide
// that returns no event and no error is an idempotent resend.
func (u *slotUsecase) withSlotLock(
	ctx context.Context,
	slotID string,
	decide func(agg *aggregate) (eventType, routingKey string, payload interface{}, err error),
	correlationID string,
) error {
	routingKey, payload, err := u.appendUnderLock(ctx, slotID, decide)
	if err != nil {
		return err
	}
	if payload == nil {
		return nil
	}

	// Published after the writer lock is released; the append is already the
	// commit point.
	return u.events.Publish(ctx, routingKey, correlationID, payload)
}

func (u *slotUsecase) appendUnderLock(
	ctx context.Context,
	slotID string,
	decide func(agg *aggregate) (eventType, routingKey string, payload interface{}, err error),
) (string, interface{}, error) {
	lockKey := slotLockKeyPrefix + slotID
	acquired, lockValue, err := u.locker.TryLock(ctx, lockKey, slotLockTTL)
	if err != nil {
		return "", nil, err
	}
	if !acquired {
		return "", nil, exceptions.ErrSlotLockConflict(nil)
	}
	defer func() {
		if err := u.locker.Unlock(ctx, lockKey, lockValue); err != nil {
			u.log.Warn("slotUsecase cannot release writer lock",
				zap.String(constvars.LoggingRedisKey, lockKey),
				zap.Error(err),
			)
		}
	}()

	events, err := u.store.Load(ctx, slotID)
	if err != nil {
		return "", nil, err
	}
	agg := newAggregate(slotID)
	if err := agg.replay(events); err != nil {
		return "", nil, err
	}

	eventType, routingKey, payload, err := decide(agg)
	if err != nil || payload == nil {
		return "", nil, err
	}

	stored, err := models.NewStoredEvent(slotID, eventType, payload)
	if err != nil {
		return "", nil, exceptions.ErrCannotMarshalJSON(err)
	}
	if err := u.store.Append(ctx, slotID, []models.StoredEvent{stored}); err != nil {
		return "", nil, err
	}
	return routingKey, payload, nil
}

// CommandConsumer feeds bus commands into the usecase so the saga's
// fire-and-forget sends land in the same code path as HTTP calls.
type CommandConsumer struct {
	usecase contracts.SlotUsecase
	log     *zap.Logger
}

func NewCommandConsumer(usecase contracts.SlotUsecase, logger *zap.Logger) *CommandConsumer {
	return &CommandConsumer{usecase: usecase, log: logger}
}

func (c *CommandConsumer) Start(ctx context.Context, consumer contracts.MessageConsumer) error {
	routingKeys := []string{
		constvars.CmdCreateSlot,
		constvars.CmdLockSlot,
		constvars.CmdReleaseSlotLock,
		constvars.CmdUpdateSlotMaxQuantity,
	}
	return consumer.Consume(ctx, constvars.QueueSlotCommands, routingKeys, c.handle)
}

func (c *CommandConsumer) handle(ctx context.Context, envelope models.Envelope) error {
	switch envelope.Name {
	case constvars.CmdCreateSlot:
		var cmd models.CreateSlotCommand
		if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		return c.usecase.Create(ctx, &cmd)

	case constvars.CmdLockSlot:
		var cmd models.LockSlotCommand
		if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		return c.usecase.Lock(ctx, &cmd)

	case constvars.CmdReleaseSlotLock:
		var cmd models.ReleaseSlotLockCommand
		if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		err := c.usecase.Release(ctx, &cmd)
		// A resent release after the hold is gone must not loop forever.
		if customErr, ok := err.(*exceptions.CustomError); ok &&
			customErr.StatusCode == constvars.StatusNotFound {
			c.log.Warn("slotCommandConsumer.handle release on missing hold, treating as done",
				zap.String(constvars.LoggingSlotIDKey, cmd.SlotID),
				zap.String(constvars.LoggingFingerprintKey, cmd.Fingerprint),
			)
			return nil
		}
		return err

	case constvars.CmdUpdateSlotMaxQuantity:
		var cmd models.UpdateSlotMaxQuantityCommand
		if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		return c.usecase.UpdateMaxQuantity(ctx, &cmd)
	}

	c.log.Warn("slotCommandConsumer.handle unknown command, dropping",
		zap.String(constvars.LoggingCommandKey, envelope.Name),
	)
	return nil
}
