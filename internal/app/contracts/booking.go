package contracts

import (
	"context"

	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/dto/requests"
	"clinic-booking-service/internal/pkg/dto/responses"
)

// BookingUsecase is the HTTP-facing surface: submit a booking attempt and
// query its status.
type BookingUsecase interface {
	CreateBooking(ctx context.Context, request *requests.CreateBooking) (*responses.BookingAccepted, error)
	GetBookingStatus(ctx context.Context, bookingID string) (*responses.BookingStatus, error)
}

// SagaRepository persists saga instances and the correlation registry so
// in-flight bookings survive a restart.
type SagaRepository interface {
	Save(ctx context.Context, instance *models.BookingSagaInstance) error
	FindByBookingID(ctx context.Context, bookingID string) (*models.BookingSagaInstance, error)
	BindCorrelation(ctx context.Context, correlationID, bookingID string) error
	ResolveCorrelation(ctx context.Context, correlationID string) (string, error)
	ListActive(ctx context.Context) ([]*models.BookingSagaInstance, error)
}

// BookingStatusRepository is the status read model store.
type BookingStatusRepository interface {
	Upsert(ctx context.Context, view *models.BookingStatusView) error
	FindByBookingID(ctx context.Context, bookingID string) (*models.BookingStatusView, error)
}
