package constvars

// Validation messages, map it with respective tag field
var CustomValidationErrorMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"alphanum": "must contain only alphanumeric characters",
	"min":      "must be at least %s characters long",
	"max":      "maximum at %s characters long",
	"oneof":    "must be one of: %s",
	"uuid":     "must be a valid UUID",
	"gte":      "must be at least %s",
}

var TagsWithParams = map[string]bool{
	"min":   true,
	"max":   true,
	"oneof": true,
	"gte":   true,
}

// Error messages for clients
const (
	ErrClientCannotProcessRequest          = "failed to process your request"
	ErrClientSomethingWrongWithApplication = "there is something wrong with the application"
	ErrClientServerLongRespond             = "the app taking too long to respond"
	ErrClientSlotUnavailable               = "the selected slot is fully booked"
	ErrClientSlotLockConflict              = "this booking request was already submitted"
	ErrClientSlotLockNotFound              = "no reservation found for this booking"
	ErrClientSlotInvalidCapacity           = "slot capacity cannot be lower than current reservations"
	ErrClientSlotNotFound                  = "slot not found"
	ErrClientBookingNotFound               = "booking not found"
)

// Error messages for developers
const (
	ErrDevInvalidInput               = "invalid input"
	ErrDevValidationFailed           = "request validation failed"
	ErrDevCannotParseJSON            = "cannot parse JSON"
	ErrDevCannotMarshalJSON          = "cannot marshal JSON"
	ErrDevServerProcess              = "server failed to process something related to machine system"
	ErrDevServerDeadlineExceeded     = "deadline exceeded"
	ErrDevURLParamIDValidationFailed = "failed to validate URL param '%s'"

	// Slot aggregate messages
	ErrDevSlotUnavailable     = "SLOT_UNAVAILABLE"
	ErrDevSlotLockConflict    = "LOCK_CONFLICT"
	ErrDevSlotLockNotFound    = "LOCK_NOT_FOUND"
	ErrDevSlotInvalidCapacity = "INVALID_CAPACITY"
	ErrDevSlotStreamNotFound  = "slot stream not found for id %s"

	// Mongo messages
	ErrDevDBFailedToInsertDocument   = "failed to insert document into database"
	ErrDevDBFailedToUpdateDocument   = "failed to update document into database"
	ErrDevDBFailedToFindDocument     = "failed when do find document on database"
	ErrDevDBFailedToDeleteDocument   = "failed when do delete document on database"
	ErrDevDBFailedToIterateDocuments = "failed when iterating documents from database"

	// Redis messages
	ErrDevRedisSetData       = "failed to SET data into redis"
	ErrDevRedisGetData       = "failed to GET data from redis"
	ErrDevRedisGetNoData     = "failed to GET data from redis, there is no data associated with key %s"
	ErrDevRedisDeleteData    = "failed to DELETE data from redis"
	ErrDevRedisZAdd          = "failed to ZADD data into sorted set in redis"
	ErrDevRedisZRangeByScore = "failed to ZRANGEBYSCORE data from sorted set in redis"
	ErrDevRedisZRem          = "failed to ZREM data from sorted set in redis"
	ErrDevRedisSetNX         = "failed to SETNX data into redis"
	ErrDevRedisUnlock        = "failed to release redis lock"

	// RabbitMQ messages
	ErrDevRabbitMQPublish      = "failed to publish message to exchange with routing key '%s'"
	ErrDevRabbitMQNotConfirmed = "publish was not confirmed by the broker for routing key '%s'"

	// SMTP messages
	ErrDevSMTPSendEmail = "failed to send email through SMTP host '%s'"
)

const (
	ErrFileLocationUnknown = "file location unknown"
	ErrLineLocationUnknown = "line location unknown"
	ErrFunctionNameUnknown = "function name unknown"
)

const (
	ErrEnvParsing = "Error parsing %s: %v, will use default value"
)
