package responses

type BookingAccepted struct {
	BookingID string `json:"booking_id"`
	SlotID    string `json:"slot_id"`
	Status    string `json:"status"`
}

type BookingStatus struct {
	BookingID     string `json:"booking_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	PatientID     string `json:"patient_id,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
}
