package eventstore

import (
	"context"
	"sync"

	"clinic-booking-service/internal/app/models"
)

// MemoryEventStore holds streams in memory for tests.
type MemoryEventStore struct {
	mu      sync.Mutex
	streams map[string][]models.StoredEvent
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{streams: make(map[string][]models.StoredEvent)}
}

func (s *MemoryEventStore) Append(_ context.Context, streamID string, events []models.StoredEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stream := s.streams[streamID]
	for i := range events {
		events[i].StreamID = streamID
		events[i].Seq = int64(len(stream)) + int64(i) + 1
	}
	s.streams[streamID] = append(stream, events...)
	return nil
}

func (s *MemoryEventStore) Load(_ context.Context, streamID string) ([]models.StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stream := s.streams[streamID]
	out := make([]models.StoredEvent, len(stream))
	copy(out, stream)
	return out, nil
}
