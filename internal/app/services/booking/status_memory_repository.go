package booking

import (
	"context"
	"sync"

	"clinic-booking-service/internal/app/models"
)

// MemoryStatusRepository backs the projection in tests.
type MemoryStatusRepository struct {
	mu    sync.Mutex
	views map[string]models.BookingStatusView
}

func NewMemoryStatusRepository() *MemoryStatusRepository {
	return &MemoryStatusRepository{views: make(map[string]models.BookingStatusView)}
}

func (r *MemoryStatusRepository) Upsert(_ context.Context, view *models.BookingStatusView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[view.BookingID] = *view
	return nil
}

func (r *MemoryStatusRepository) FindByBookingID(_ context.Context, bookingID string) (*models.BookingStatusView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	view, ok := r.views[bookingID]
	if !ok {
		return nil, nil
	}
	copied := view
	return &copied, nil
}
