package constvars

const (
	LoggingRequestIDKey     = "request_id"
	LoggingMethodKey        = "method"
	LoggingEndpointKey      = "endpoint"
	LoggingRemoteAddrKey    = "remote_addr"
	LoggingUserAgentKey     = "user_agent"
	LoggingQueryKey         = "query"
	LoggingStatusCodeKey    = "status_code"
	LoggingDurationKey      = "duration"
	LoggingSuccessKey       = "success"
	LoggingBookingIDKey     = "booking_id"
	LoggingSlotIDKey        = "slot_id"
	LoggingPatientIDKey     = "patient_id"
	LoggingAppointmentIDKey = "appointment_id"
	LoggingFingerprintKey   = "fingerprint"
	LoggingSagaStateKey     = "saga_state"
	LoggingEventKey         = "event"
	LoggingCommandKey       = "command"
	LoggingDeadlineNameKey  = "deadline_name"
	LoggingDeadlineIDKey    = "deadline_id"
	LoggingCorrelationIDKey = "correlation_id"
	LoggingRetryCountKey    = "retry_count"
	LoggingReasonKey        = "reason"
	LoggingRedisKey         = "redis_key"
	LoggingLockValueKey     = "lock_value"

	LoggingLockExpirationTimeKey = "lock_expiration_time"
	LoggingLockStoredValueKey    = "lock_stored_value"
	LoggingLockExpectedValueKey  = "lock_expected_value"
)
