package booking

import (
	"context"
	"sync"
	"time"

	"clinic-booking-service/internal/app/config"
	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// SagaManager routes inbound events to their saga instance. Routing follows
// an explicit correlation registry: every key a saga listens on (booking id,
// verification id, patient id, appointment id, fingerprint) maps to the
// owning booking id. Keys are bound incrementally and never unbound.
//
// Dispatch for one instance is serialized by a per-booking mutex, so the state
// machine never races with itself even when the transport delivers two events
// concurrently.
type SagaManager struct {
	saga       *saga
	repository contracts.SagaRepository
	log        *zap.Logger

	mu        sync.Mutex
	cache     map[string]string
	instLocks map[string]*sync.Mutex
}

func NewSagaManager(
	commands contracts.CommandBus,
	events contracts.EventPublisher,
	deadlines contracts.DeadlineScheduler,
	repository contracts.SagaRepository,
	logger *zap.Logger,
	cfg config.Booking,
) *SagaManager {
	manager := &SagaManager{
		repository: repository,
		log:        logger,
		cache:      make(map[string]string),
		instLocks:  make(map[string]*sync.Mutex),
	}
	manager.saga = newSaga(commands, events, deadlines, manager, logger, cfg)
	return manager
}

// Start warms the correlation cache from the still-active instances and
// subscribes the manager to every event the saga reacts to.
func (m *SagaManager) Start(ctx context.Context, consumer contracts.MessageConsumer) error {
	if err := m.warmCache(ctx); err != nil {
		return err
	}

	routingKeys := []string{
		constvars.EventSlotLocked,
		constvars.EventSlotLockReleased,
		constvars.EventEmailVerified,
		constvars.EventEmailVerificationFailed,
		constvars.EventPatientCreated,
		constvars.EventPatientCreationFailed,
		constvars.EventAppointmentCreated,
		constvars.EventAppointmentCreationFailed,
		constvars.EventDeadlineFired,
	}
	return consumer.Consume(ctx, constvars.QueueSagaEvents, routingKeys, m.Handle)
}

func (m *SagaManager) warmCache(ctx context.Context) error {
	active, err := m.repository.ListActive(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, instance := range active {
		for _, key := range correlationKeys(instance) {
			m.cache[key] = instance.BookingID
		}
	}
	m.log.Info("sagaManager.warmCache rebuilt correlation registry",
		zap.Int("active_instances", len(active)),
	)
	return nil
}

func correlationKeys(instance *models.BookingSagaInstance) []string {
	keys := []string{instance.BookingID}
	for _, key := range []string{
		instance.VerificationID,
		instance.PatientID,
		instance.AppointmentID,
		instance.Fingerprint,
	} {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Bind registers a correlation key for an instance, durably and in the cache.
func (m *SagaManager) Bind(ctx context.Context, correlationID, bookingID string) error {
	if err := m.repository.BindCorrelation(ctx, correlationID, bookingID); err != nil {
		return err
	}
	m.mu.Lock()
	m.cache[correlationID] = bookingID
	m.mu.Unlock()
	return nil
}

// Handle is the single entry point for every saga-relevant envelope.
func (m *SagaManager) Handle(ctx context.Context, envelope models.Envelope) error {
	if envelope.Name == constvars.EventSlotLocked {
		return m.handleSlotLocked(ctx, envelope)
	}

	bookingID, err := m.resolve(ctx, envelope.CorrelationID)
	if err != nil {
		return err
	}
	if bookingID == "" {
		m.log.Warn("sagaManager.Handle no instance for correlation key, dropping",
			zap.String(constvars.LoggingEventKey, envelope.Name),
			zap.String(constvars.LoggingCorrelationIDKey, envelope.CorrelationID),
		)
		return nil
	}

	return m.withInstance(ctx, bookingID, func(instance *models.BookingSagaInstance) error {
		return m.dispatch(ctx, instance, envelope)
	})
}

// handleSlotLocked creates the instance on first delivery; a redelivery finds
// the stored instance already past LOCKED and falls into the state guard.
func (m *SagaManager) handleSlotLocked(ctx context.Context, envelope models.Envelope) error {
	var event models.SlotLocked
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return exceptions.ErrCannotParseJSON(err)
	}

	return m.withInstance(ctx, event.BookingID, func(instance *models.BookingSagaInstance) error {
		if instance == nil {
			instance = &models.BookingSagaInstance{
				BookingID:   event.BookingID,
				State:       models.SagaStateLocked,
				SlotID:      event.SlotID,
				Fingerprint: event.Fingerprint,
				Name:        event.Name,
				Phone:       event.Phone,
				Email:       event.Email,
				CreatedAt:   time.Now().UTC(),
			}
			if err := m.Bind(ctx, event.BookingID, event.BookingID); err != nil {
				return err
			}
		}
		if instance.State.Terminal() {
			return nil
		}
		if err := m.saga.onSlotLocked(ctx, instance, &event); err != nil {
			return err
		}
		instance.UpdatedAt = time.Now().UTC()
		return m.repository.Save(ctx, instance)
	})
}

func (m *SagaManager) dispatch(ctx context.Context, instance *models.BookingSagaInstance, envelope models.Envelope) error {
	if instance == nil {
		m.log.Warn("sagaManager.dispatch correlation resolved but instance missing, dropping",
			zap.String(constvars.LoggingEventKey, envelope.Name),
			zap.String(constvars.LoggingCorrelationIDKey, envelope.CorrelationID),
		)
		return nil
	}
	if instance.State.Terminal() {
		return nil
	}

	var err error
	switch envelope.Name {
	case constvars.EventEmailVerified:
		err = m.saga.onEmailVerified(ctx, instance)
	case constvars.EventEmailVerificationFailed:
		err = m.saga.onEmailVerificationFailed(ctx, instance)
	case constvars.EventPatientCreated:
		err = m.saga.onPatientCreated(ctx, instance)
	case constvars.EventPatientCreationFailed:
		err = m.saga.onPatientCreationFailed(ctx, instance)
	case constvars.EventAppointmentCreated:
		err = m.saga.onAppointmentCreated(ctx, instance)
	case constvars.EventAppointmentCreationFailed:
		err = m.saga.onAppointmentCreationFailed(ctx, instance)
	case constvars.EventSlotLockReleased:
		err = m.saga.onSlotLockReleased(ctx, instance)
	case constvars.EventDeadlineFired:
		var event models.DeadlineFiredEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		err = m.saga.onDeadlineFired(ctx, instance, &event)
	default:
		m.log.Warn("sagaManager.dispatch unknown event, dropping",
			zap.String(constvars.LoggingEventKey, envelope.Name),
		)
		return nil
	}
	if err != nil {
		return err
	}

	instance.UpdatedAt = time.Now().UTC()
	return m.repository.Save(ctx, instance)
}

func (m *SagaManager) resolve(ctx context.Context, correlationID string) (string, error) {
	m.mu.Lock()
	bookingID, cached := m.cache[correlationID]
	m.mu.Unlock()
	if cached {
		return bookingID, nil
	}

	bookingID, err := m.repository.ResolveCorrelation(ctx, correlationID)
	if err != nil {
		return "", err
	}
	if bookingID != "" {
		m.mu.Lock()
		m.cache[correlationID] = bookingID
		m.mu.Unlock()
	}
	return bookingID, nil
}

// withInstance loads the instance under its per-booking mutex and runs fn.
// fn receives nil when no instance exists yet.
func (m *SagaManager) withInstance(ctx context.Context, bookingID string, fn func(instance *models.BookingSagaInstance) error) error {
	lock := m.instanceLock(bookingID)
	lock.Lock()
	defer lock.Unlock()

	instance, err := m.repository.FindByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	return fn(instance)
}

func (m *SagaManager) instanceLock(bookingID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.instLocks[bookingID]
	if !ok {
		lock = &sync.Mutex{}
		m.instLocks[bookingID] = lock
	}
	return lock
}
