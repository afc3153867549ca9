package constvars

const (
	MongoCollectionSlotEvents    = "slot_events"
	MongoCollectionPatients      = "patients"
	MongoCollectionAppointments  = "appointments"
	MongoCollectionBookingSagas  = "booking_sagas"
	MongoCollectionCorrelations  = "booking_saga_correlations"
	MongoCollectionBookingStatus = "booking_status"
)
