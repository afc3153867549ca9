package booking

import (
	"context"
	"sync"

	"clinic-booking-service/internal/app/models"
)

// MemorySagaRepository backs the manager in tests.
type MemorySagaRepository struct {
	mu           sync.Mutex
	instances    map[string]models.BookingSagaInstance
	correlations map[string]string
}

func NewMemorySagaRepository() *MemorySagaRepository {
	return &MemorySagaRepository{
		instances:    make(map[string]models.BookingSagaInstance),
		correlations: make(map[string]string),
	}
}

func (r *MemorySagaRepository) Save(_ context.Context, instance *models.BookingSagaInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[instance.BookingID] = *instance
	return nil
}

func (r *MemorySagaRepository) FindByBookingID(_ context.Context, bookingID string) (*models.BookingSagaInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	instance, ok := r.instances[bookingID]
	if !ok {
		return nil, nil
	}
	copied := instance
	return &copied, nil
}

func (r *MemorySagaRepository) BindCorrelation(_ context.Context, correlationID, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.correlations[correlationID] = bookingID
	return nil
}

func (r *MemorySagaRepository) ResolveCorrelation(_ context.Context, correlationID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.correlations[correlationID], nil
}

func (r *MemorySagaRepository) ListActive(_ context.Context) ([]*models.BookingSagaInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []*models.BookingSagaInstance
	for _, instance := range r.instances {
		if !instance.State.Terminal() {
			copied := instance
			active = append(active, &copied)
		}
	}
	return active, nil
}
