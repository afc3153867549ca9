package constvars

type ContextKey string

const (
	CONTEXT_REQUEST_ID_KEY ContextKey = "request_id"
)

const (
	REQUEST_ID_PREFIX = "BKNG_SVC_"
)

const (
	URLParamBookingID = "booking_id"
	URLParamSlotID    = "slot_id"
)

const (
	URLQueryParamDate      = "date"
	URLQueryParamPackageID = "package_id"
)
