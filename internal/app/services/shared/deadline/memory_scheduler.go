package deadline

import (
	"context"
	"sync"
	"time"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"

	"github.com/google/uuid"
)

// ScheduledDeadline is a pending timer held by MemoryScheduler.
type ScheduledDeadline struct {
	DeadlineID    string
	Name          string
	CorrelationID string
	Duration      time.Duration
}

// MemoryScheduler records deadlines instead of waiting on them. Tests fire
// them by hand through Fire, which publishes the same DeadlineFired event the
// redis worker would.
type MemoryScheduler struct {
	mu        sync.Mutex
	pending   map[string]ScheduledDeadline
	cancelled []string
	publisher contracts.EventPublisher
}

func NewMemoryScheduler(publisher contracts.EventPublisher) *MemoryScheduler {
	return &MemoryScheduler{
		pending:   make(map[string]ScheduledDeadline),
		publisher: publisher,
	}
}

func (s *MemoryScheduler) Schedule(_ context.Context, duration time.Duration, name, correlationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadlineID := uuid.NewString()
	s.pending[deadlineID] = ScheduledDeadline{
		DeadlineID:    deadlineID,
		Name:          name,
		CorrelationID: correlationID,
		Duration:      duration,
	}
	return deadlineID, nil
}

func (s *MemoryScheduler) Cancel(_ context.Context, _ string, deadlineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, deadlineID)
	s.cancelled = append(s.cancelled, deadlineID)
	return nil
}

// Fire delivers the oldest pending deadline with the given name for the given
// correlation id and removes it, returning false when none is pending.
func (s *MemoryScheduler) Fire(ctx context.Context, name, correlationID string) (bool, error) {
	s.mu.Lock()
	var found *ScheduledDeadline
	for _, d := range s.pending {
		if d.Name == name && d.CorrelationID == correlationID {
			copied := d
			found = &copied
			break
		}
	}
	if found != nil {
		delete(s.pending, found.DeadlineID)
	}
	s.mu.Unlock()

	if found == nil {
		return false, nil
	}
	event := models.DeadlineFiredEvent{
		DeadlineID:    found.DeadlineID,
		Name:          found.Name,
		CorrelationID: found.CorrelationID,
	}
	return true, s.publisher.Publish(ctx, constvars.EventDeadlineFired, found.CorrelationID, event)
}

// Pending lists timers not yet fired or cancelled.
func (s *MemoryScheduler) Pending() []ScheduledDeadline {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledDeadline, 0, len(s.pending))
	for _, d := range s.pending {
		out = append(out, d)
	}
	return out
}

// PendingNamed lists pending timers with the given name.
func (s *MemoryScheduler) PendingNamed(name string) []ScheduledDeadline {
	var out []ScheduledDeadline
	for _, d := range s.Pending() {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// Cancelled lists deadline ids cancelled so far.
func (s *MemoryScheduler) Cancelled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.cancelled))
	copy(out, s.cancelled)
	return out
}
