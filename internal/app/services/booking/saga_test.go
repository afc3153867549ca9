package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinic-booking-service/internal/app/config"
	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/app/services/appointments"
	"clinic-booking-service/internal/app/services/patients"
	"clinic-booking-service/internal/app/services/shared/bus"
	"clinic-booking-service/internal/app/services/shared/deadline"
	"clinic-booking-service/internal/app/services/shared/eventstore"
	"clinic-booking-service/internal/app/services/shared/locker"
	"clinic-booking-service/internal/app/services/slot"
	"clinic-booking-service/internal/app/services/verification"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/dto/requests"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakePatientRepository keeps patients in memory and can be told to fail the
// next N upserts to exercise the retry machinery.
type fakePatientRepository struct {
	mu          sync.Mutex
	patients    map[string]models.Patient
	failUpserts int
	upsertCalls int
	deletedIDs  []string
}

func newFakePatientRepository(failUpserts int) *fakePatientRepository {
	return &fakePatientRepository{patients: make(map[string]models.Patient), failUpserts: failUpserts}
}

func (r *fakePatientRepository) Upsert(_ context.Context, patient *models.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if r.failUpserts != 0 {
		if r.failUpserts > 0 {
			r.failUpserts--
		}
		return errors.New("patient store unavailable")
	}
	r.patients[patient.PatientID] = *patient
	return nil
}

func (r *fakePatientRepository) Delete(_ context.Context, patientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.patients, patientID)
	r.deletedIDs = append(r.deletedIDs, patientID)
	return nil
}

func (r *fakePatientRepository) FindByPatientID(_ context.Context, patientID string) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	patient, ok := r.patients[patientID]
	if !ok {
		return nil, nil
	}
	copied := patient
	return &copied, nil
}

type fakeAppointmentRepository struct {
	mu           sync.Mutex
	appointments map[string]models.Appointment
	failUpserts  int
	upsertCalls  int
}

func newFakeAppointmentRepository(failUpserts int) *fakeAppointmentRepository {
	return &fakeAppointmentRepository{appointments: make(map[string]models.Appointment), failUpserts: failUpserts}
}

func (r *fakeAppointmentRepository) Upsert(_ context.Context, appointment *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if r.failUpserts != 0 {
		if r.failUpserts > 0 {
			r.failUpserts--
		}
		return errors.New("appointment store unavailable")
	}
	r.appointments[appointment.AppointmentID] = *appointment
	return nil
}

func (r *fakeAppointmentRepository) FindByAppointmentID(_ context.Context, appointmentID string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.appointments[appointmentID]
	if !ok {
		return nil, nil
	}
	copied := appointment
	return &copied, nil
}

type fakeMailer struct{}

func (fakeMailer) SendBasicEmail(context.Context, string, string, string) error { return nil }

// sagaTestEnv wires the whole flow onto the in-memory bus: slot usecase and
// consumer, collaborators, saga manager, projection and a hand-fired
// scheduler.
type sagaTestEnv struct {
	bus          *bus.MemoryBus
	scheduler    *deadline.MemoryScheduler
	sagas        *MemorySagaRepository
	statuses     *MemoryStatusRepository
	slots        contracts.SlotUsecase
	booking      contracts.BookingUsecase
	patientRepo  *fakePatientRepository
	appointments *fakeAppointmentRepository
}

// sagaEnvOptions selects which failure injections and consumers a scenario
// needs. Skipping a consumer parks the saga in the state that waits on it.
type sagaEnvOptions struct {
	patientFailures     int
	appointmentFailures int
	skipVerification    bool
	skipSlotConsumer    bool
}

func newSagaTestEnv(t *testing.T, opts sagaEnvOptions) *sagaTestEnv {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	memBus := bus.NewMemoryBus()
	scheduler := deadline.NewMemoryScheduler(memBus)
	sagaRepo := NewMemorySagaRepository()
	statusRepo := NewMemoryStatusRepository()

	slots := slot.NewSlotUsecase(eventstore.NewMemoryEventStore(), locker.NewMemoryLocker(), memBus, log)
	if !opts.skipSlotConsumer {
		assert.NoError(t, slot.NewCommandConsumer(slots, log).Start(ctx, memBus))
	}

	patientRepo := newFakePatientRepository(opts.patientFailures)
	assert.NoError(t, patients.NewCommandConsumer(patientRepo, memBus, log).Start(ctx, memBus))

	appointmentRepo := newFakeAppointmentRepository(opts.appointmentFailures)
	assert.NoError(t, appointments.NewCommandConsumer(appointmentRepo, memBus, log).Start(ctx, memBus))

	if !opts.skipVerification {
		assert.NoError(t, verification.NewCommandConsumer(fakeMailer{}, memBus, log).Start(ctx, memBus))
	}

	cfg := config.Booking{TimeoutInSeconds: 30, MaxRetry: 3, RetryBackoffInSeconds: 30}
	manager := NewSagaManager(memBus, memBus, scheduler, sagaRepo, log, cfg)
	assert.NoError(t, manager.Start(ctx, memBus))

	projection := NewStatusProjection(statusRepo, log)
	assert.NoError(t, projection.Start(ctx, memBus))

	return &sagaTestEnv{
		bus:          memBus,
		scheduler:    scheduler,
		sagas:        sagaRepo,
		statuses:     statusRepo,
		slots:        slots,
		booking:      NewBookingUsecase(slots, statusRepo, log),
		patientRepo:  patientRepo,
		appointments: appointmentRepo,
	}
}

func (env *sagaTestEnv) createSlot(t *testing.T, slotID string, maxQuantity int) {
	t.Helper()
	err := env.slots.Create(context.Background(), &models.CreateSlotCommand{
		SlotID:      slotID,
		Date:        "2026-09-14",
		Shift:       int(models.ShiftMorning),
		PackageID:   "pkg-basic",
		MaxQuantity: maxQuantity,
	})
	assert.NoError(t, err)
}

func (env *sagaTestEnv) submitBooking(t *testing.T, slotID, fingerprint string) string {
	t.Helper()
	accepted, err := env.booking.CreateBooking(context.Background(), &requests.CreateBooking{
		SlotID:      slotID,
		Fingerprint: fingerprint,
		Name:        "Ayu Lestari",
		Phone:       "+6281234567890",
		Email:       "ayu@example.com",
	})
	assert.NoError(t, err)
	return accepted.BookingID
}

func (env *sagaTestEnv) instance(t *testing.T, bookingID string) *models.BookingSagaInstance {
	t.Helper()
	instance, err := env.sagas.FindByBookingID(context.Background(), bookingID)
	assert.NoError(t, err)
	assert.NotNil(t, instance)
	return instance
}

func (env *sagaTestEnv) remaining(t *testing.T, slotID string) int {
	t.Helper()
	snapshot, err := env.slots.Get(context.Background(), slotID)
	assert.NoError(t, err)
	return snapshot.RemainingQuantity
}

// fireRetry asserts exactly one pending retry timer with the expected backoff
// and fires it.
func (env *sagaTestEnv) fireRetry(t *testing.T, name, bookingID string, expectedBackoff time.Duration) {
	t.Helper()
	pending := env.scheduler.PendingNamed(name)
	assert.Len(t, pending, 1)
	assert.Equal(t, expectedBackoff, pending[0].Duration)

	fired, err := env.scheduler.Fire(context.Background(), name, bookingID)
	assert.NoError(t, err)
	assert.True(t, fired)
}

func TestBookingSagaHappyPath(t *testing.T) {
	ctx := context.Background()
	env := newSagaTestEnv(t, sagaEnvOptions{})
	env.createSlot(t, "slot-1", 1)

	bookingID := env.submitBooking(t, "slot-1", "fp-aaaa-0001")

	instance := env.instance(t, bookingID)
	assert.Equal(t, models.SagaStateCompleted, instance.State)
	assert.NotEmpty(t, instance.PatientID)
	assert.NotEmpty(t, instance.AppointmentID)

	completed := env.bus.PublishedNamed(constvars.EventBookingCompleted)
	assert.Len(t, completed, 1, "booking completed must be published exactly once")

	assert.Equal(t, 1, env.remaining(t, "slot-1"), "capacity should return only after the release")
	assert.Empty(t, env.scheduler.Pending(), "every deadline must be cancelled on completion")

	status, err := env.booking.GetBookingStatus(ctx, bookingID)
	assert.NoError(t, err)
	assert.Equal(t, constvars.BookingStatusApproved, status.Status)
	assert.Equal(t, instance.PatientID, status.PatientID)
	assert.Equal(t, instance.AppointmentID, status.AppointmentID)

	_, err = env.patientRepo.FindByPatientID(ctx, instance.PatientID)
	assert.NoError(t, err)
}

func TestBookingSagaDuplicateFingerprint(t *testing.T) {
	// No verification consumer: the first saga parks in PENDING_VERIFY_EMAIL
	// with its slot hold still active when the duplicate arrives.
	env := newSagaTestEnv(t, sagaEnvOptions{skipVerification: true})
	env.createSlot(t, "slot-1", 5)

	bookingID := env.submitBooking(t, "slot-1", "fp-aaaa-0001")
	assert.Equal(t, models.SagaStatePendingVerifyEmail, env.instance(t, bookingID).State)
	assert.Equal(t, 4, env.remaining(t, "slot-1"))

	_, err := env.booking.CreateBooking(context.Background(), &requests.CreateBooking{
		SlotID:      "slot-1",
		Fingerprint: "fp-aaaa-0001",
		Name:        "Ayu Lestari",
		Phone:       "+6281234567890",
		Email:       "ayu@example.com",
	})
	assert.Error(t, err, "second submission with the same fingerprint must conflict")
	assert.Equal(t, 4, env.remaining(t, "slot-1"), "the duplicate must not take another hold")
}

func TestBookingSagaEarlyTimeoutRollback(t *testing.T) {
	ctx := context.Background()
	// No verification consumer: the saga stays in PENDING_VERIFY_EMAIL.
	env := newSagaTestEnv(t, sagaEnvOptions{skipVerification: true})
	env.createSlot(t, "slot-1", 1)

	bookingID := env.submitBooking(t, "slot-1", "fp-aaaa-0001")

	instance := env.instance(t, bookingID)
	assert.Equal(t, models.SagaStatePendingVerifyEmail, instance.State)
	assert.Equal(t, 0, env.remaining(t, "slot-1"))

	fired, err := env.scheduler.Fire(ctx, constvars.DeadlineBooking, bookingID)
	assert.NoError(t, err)
	assert.True(t, fired)

	instance = env.instance(t, bookingID)
	assert.Equal(t, models.SagaStateFailed, instance.State)
	assert.Equal(t, constvars.ReasonTimeout, instance.Reason)

	rejected := env.bus.PublishedNamed(constvars.EventBookingRejected)
	assert.Len(t, rejected, 1)

	assert.Equal(t, 1, env.remaining(t, "slot-1"), "rollback must release the slot lock")

	status, err := env.booking.GetBookingStatus(ctx, bookingID)
	assert.NoError(t, err)
	assert.Equal(t, constvars.BookingStatusRejected, status.Status)
	assert.Equal(t, constvars.ReasonTimeout, status.Reason)

	// A stray verification success after the rollback must be a no-op.
	err = env.bus.Publish(ctx, constvars.EventEmailVerified, instance.VerificationID,
		models.EmailVerifiedEvent{VerificationID: instance.VerificationID})
	assert.NoError(t, err)

	assert.Equal(t, models.SagaStateFailed, env.instance(t, bookingID).State)
	assert.Len(t, env.bus.PublishedNamed(constvars.CmdReleaseSlotLock), 1,
		"the release must be issued exactly once")
	assert.Equal(t, 1, env.remaining(t, "slot-1"))
}

func TestBookingSagaTimeoutDuringReleaseDoesNotRollback(t *testing.T) {
	ctx := context.Background()
	// No slot command consumer: the release command goes unconsumed and the
	// saga parks in PENDING_RELEASE_SLOT_LOCK.
	env := newSagaTestEnv(t, sagaEnvOptions{skipSlotConsumer: true})
	env.createSlot(t, "slot-1", 1)

	bookingID := env.submitBooking(t, "slot-1", "fp-aaaa-0001")

	instance := env.instance(t, bookingID)
	assert.Equal(t, models.SagaStatePendingReleaseSlotLock, instance.State)
	assert.Len(t, env.bus.PublishedNamed(constvars.CmdReleaseSlotLock), 1)

	fired, err := env.scheduler.Fire(ctx, constvars.DeadlineBooking, bookingID)
	assert.NoError(t, err)
	assert.True(t, fired)

	// Patient and appointment already exist: the budget firing here must not
	// reject the booking, only nudge the release again.
	instance = env.instance(t, bookingID)
	assert.Equal(t, models.SagaStatePendingReleaseSlotLock, instance.State)
	assert.Empty(t, env.bus.PublishedNamed(constvars.EventBookingRejected))
	assert.Empty(t, env.bus.PublishedNamed(constvars.CmdDeletePatient),
		"the created patient must survive the budget firing")
	assert.Len(t, env.bus.PublishedNamed(constvars.CmdReleaseSlotLock), 2,
		"the release must be re-issued")

	// Once the release lands, the saga completes normally.
	err = env.slots.Release(ctx, &models.ReleaseSlotLockCommand{
		SlotID:      instance.SlotID,
		Fingerprint: instance.Fingerprint,
	})
	assert.NoError(t, err)

	instance = env.instance(t, bookingID)
	assert.Equal(t, models.SagaStateCompleted, instance.State)
	assert.Len(t, env.bus.PublishedNamed(constvars.EventBookingCompleted), 1)
	assert.Equal(t, 1, env.remaining(t, "slot-1"))

	status, err := env.booking.GetBookingStatus(ctx, bookingID)
	assert.NoError(t, err)
	assert.Equal(t, constvars.BookingStatusApproved, status.Status)
}

func TestBookingSagaBoundedRetryThenRollback(t *testing.T) {
	env := newSagaTestEnv(t, sagaEnvOptions{patientFailures: -1}) // patient store fails forever
	env.createSlot(t, "slot-1", 1)

	bookingID := env.submitBooking(t, "slot-1", "fp-aaaa-0001")

	assert.Equal(t, models.SagaStatePendingCreatePatient, env.instance(t, bookingID).State)

	backoffs := []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}
	for _, backoff := range backoffs {
		env.fireRetry(t, constvars.DeadlineRetryCreatePatient, bookingID, backoff)
	}

	instance := env.instance(t, bookingID)
	assert.Equal(t, models.SagaStateFailed, instance.State)
	assert.Equal(t, constvars.ReasonPatientCreationFailed, instance.Reason)

	assert.Len(t, env.bus.PublishedNamed(constvars.CmdCreatePatient), 4,
		"one initial attempt plus three re-attempts")
	assert.Equal(t, 4, env.patientRepo.upsertCalls)
	assert.Empty(t, env.bus.PublishedNamed(constvars.CmdDeletePatient),
		"no patient was ever created, so none must be deleted")

	assert.Equal(t, 1, env.remaining(t, "slot-1"))
	assert.Empty(t, env.scheduler.PendingNamed(constvars.DeadlineBooking),
		"rollback must cancel the overall deadline")
}

func TestBookingSagaPostCreationRollbackDeletesPatient(t *testing.T) {
	env := newSagaTestEnv(t, sagaEnvOptions{appointmentFailures: -1}) // appointment store fails forever
	env.createSlot(t, "slot-1", 1)

	bookingID := env.submitBooking(t, "slot-1", "fp-aaaa-0001")

	assert.Equal(t, models.SagaStatePendingCreateAppointment, env.instance(t, bookingID).State)

	backoffs := []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}
	for _, backoff := range backoffs {
		env.fireRetry(t, constvars.DeadlineRetryCreateAppointment, bookingID, backoff)
	}

	instance := env.instance(t, bookingID)
	assert.Equal(t, models.SagaStateFailed, instance.State)
	assert.Equal(t, constvars.ReasonAppointmentCreationFailed, instance.Reason)

	assert.Len(t, env.bus.PublishedNamed(constvars.CmdReleaseSlotLock), 1)
	assert.Len(t, env.bus.PublishedNamed(constvars.CmdDeletePatient), 1,
		"the already-created patient must be compensated")
	assert.Equal(t, []string{instance.PatientID}, env.patientRepo.deletedIDs)

	assert.Equal(t, 1, env.remaining(t, "slot-1"))
}

func TestBookingSagaDuplicateEventTolerance(t *testing.T) {
	ctx := context.Background()
	// Appointment store fails once so the saga parks in
	// PENDING_CREATE_APPOINTMENT waiting on a retry timer.
	env := newSagaTestEnv(t, sagaEnvOptions{appointmentFailures: 1})
	env.createSlot(t, "slot-1", 1)

	bookingID := env.submitBooking(t, "slot-1", "fp-aaaa-0001")

	instance := env.instance(t, bookingID)
	assert.Equal(t, models.SagaStatePendingCreateAppointment, instance.State)
	createsBefore := len(env.bus.PublishedNamed(constvars.CmdCreateAppointment))

	// Redeliver the patient-created event the saga has already handled.
	err := env.bus.Publish(ctx, constvars.EventPatientCreated, instance.PatientID,
		models.PatientCreatedEvent{PatientID: instance.PatientID})
	assert.NoError(t, err)

	assert.Len(t, env.bus.PublishedNamed(constvars.CmdCreateAppointment), createsBefore,
		"a duplicate patient-created event must not issue another create-appointment command")
	assert.Equal(t, models.SagaStatePendingCreateAppointment, env.instance(t, bookingID).State)

	// The parked retry then completes the workflow.
	env.fireRetry(t, constvars.DeadlineRetryCreateAppointment, bookingID, 30*time.Second)
	assert.Equal(t, models.SagaStateCompleted, env.instance(t, bookingID).State)
}

func TestBookingSagaVerificationFailureRollsBackImmediately(t *testing.T) {
	env := newSagaTestEnv(t, sagaEnvOptions{})
	env.createSlot(t, "slot-1", 1)

	accepted, err := env.booking.CreateBooking(context.Background(), &requests.CreateBooking{
		SlotID:      "slot-1",
		Fingerprint: "fp-aaaa-0001",
		Name:        "Ayu Lestari",
		Phone:       "+6281234567890",
		Email:       "not-an-email",
	})
	assert.NoError(t, err)

	instance := env.instance(t, accepted.BookingID)
	assert.Equal(t, models.SagaStateFailed, instance.State)
	assert.Equal(t, constvars.ReasonEmailVerificationFailed, instance.Reason)
	assert.Equal(t, 1, env.remaining(t, "slot-1"))
	assert.Empty(t, env.bus.PublishedNamed(constvars.CmdCreatePatient),
		"verification failure must stop the workflow before patient creation")
}
