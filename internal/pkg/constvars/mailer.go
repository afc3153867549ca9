package constvars

const (
	EmailVerificationSubjectMessage = "[CLINIC] Confirm your booking email address"
)

const (
	EmailSendBasicEmailSubjectFormat = "To: %s\r\nSubject: %s\r\n\r\n%s\r\n"
	EmailBodyVerification            = "We received a booking request for this address. Verification id: %s. If you did not request a booking, ignore this email."
)
