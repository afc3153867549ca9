package booking

import (
	"context"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/dto/requests"
	"clinic-booking-service/internal/pkg/dto/responses"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bookingUsecase accepts booking attempts. The slot lock runs synchronously
// so capacity conflicts surface to the caller immediately; everything after
// the lock is driven asynchronously by the saga reacting to the published
// locked event.
type bookingUsecase struct {
	slots  contracts.SlotUsecase
	status contracts.BookingStatusRepository
	log    *zap.Logger
}

func NewBookingUsecase(
	slots contracts.SlotUsecase,
	status contracts.BookingStatusRepository,
	logger *zap.Logger,
) contracts.BookingUsecase {
	return &bookingUsecase{
		slots:  slots,
		status: status,
		log:    logger,
	}
}

func (u *bookingUsecase) CreateBooking(ctx context.Context, request *requests.CreateBooking) (*responses.BookingAccepted, error) {
	bookingID := uuid.NewString()

	u.log.Info("bookingUsecase.CreateBooking called",
		zap.String(constvars.LoggingBookingIDKey, bookingID),
		zap.String(constvars.LoggingSlotIDKey, request.SlotID),
		zap.String(constvars.LoggingFingerprintKey, request.Fingerprint),
	)

	err := u.slots.Lock(ctx, &models.LockSlotCommand{
		SlotID:      request.SlotID,
		BookingID:   bookingID,
		Fingerprint: request.Fingerprint,
		Name:        request.Name,
		Phone:       request.Phone,
		Email:       request.Email,
	})
	if err != nil {
		return nil, err
	}

	return &responses.BookingAccepted{
		BookingID: bookingID,
		SlotID:    request.SlotID,
		Status:    constvars.BookingStatusPending,
	}, nil
}

func (u *bookingUsecase) GetBookingStatus(ctx context.Context, bookingID string) (*responses.BookingStatus, error) {
	u.log.Info("bookingUsecase.GetBookingStatus called",
		zap.String(constvars.LoggingBookingIDKey, bookingID),
	)

	view, err := u.status.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, exceptions.ErrBookingNotFound(nil)
	}

	return &responses.BookingStatus{
		BookingID:     view.BookingID,
		Status:        view.Status,
		Reason:        view.Reason,
		PatientID:     view.PatientID,
		AppointmentID: view.AppointmentID,
	}, nil
}
