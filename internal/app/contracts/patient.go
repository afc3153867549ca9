package contracts

import (
	"context"

	"clinic-booking-service/internal/app/models"
)

type PatientRepository interface {
	Upsert(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, patientID string) error
	FindByPatientID(ctx context.Context, patientID string) (*models.Patient, error)
}

type AppointmentRepository interface {
	Upsert(ctx context.Context, appointment *models.Appointment) error
	FindByAppointmentID(ctx context.Context, appointmentID string) (*models.Appointment, error)
}
