package constvars

const (
	CreateBookingSuccessMessage      = "Booking accepted and being processed"
	GetBookingStatusSuccessMessage   = "Successfully retrieved booking status"
	CreateSlotSuccessMessage         = "Successfully created slot"
	UpdateSlotCapacitySuccessMessage = "Successfully updated slot capacity"
	GetSlotSuccessMessage            = "Successfully retrieved slot"
)
