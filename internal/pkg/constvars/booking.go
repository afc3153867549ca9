package constvars

// Saga deadline names. Each stage keeps its own name so a stale timer from an
// earlier stage can never fire into a later one.
const (
	DeadlineBooking                = "booking-deadline"
	DeadlineRetryCreatePatient     = "retry-create-patient"
	DeadlineRetryCreateAppointment = "retry-create-appointment"
)

const (
	BookingMaxRetry              = 3
	BookingTimeoutInSeconds      = 30
	BookingRetryBackoffInSeconds = 30
)

// Rejection reasons carried on BookingRejected.
const (
	ReasonTimeout                   = "TIMEOUT"
	ReasonEmailVerificationFailed   = "EmailVerificationFailed"
	ReasonPatientCreationFailed     = "PatientCreationFailed"
	ReasonAppointmentCreationFailed = "AppointmentCreationFailed"
)

// Booking status view values for the read endpoint.
const (
	BookingStatusPending  = "PENDING"
	BookingStatusApproved = "APPROVED"
	BookingStatusRejected = "REJECTED"
)
