package requests

// CreateBooking is the inbound request that starts a booking attempt. The
// fingerprint is a client-supplied deduplication token: submitting the same
// request twice must lock the slot only once.
type CreateBooking struct {
	SlotID      string `json:"slot_id" validate:"required,uuid"`
	Fingerprint string `json:"fingerprint" validate:"required,min=8,max=128"`
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Phone       string `json:"phone" validate:"required,min=8,max=20"`
	Email       string `json:"email" validate:"required,email"`
}
