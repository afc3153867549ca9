package locker

import (
	"context"
	"sync"
	"time"

	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/google/uuid"
)

// MemoryLocker is a process-local LockerService for tests. TTLs are ignored;
// a lock is held until Unlock.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]string
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]string)}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locks[key]; held {
		return false, "", nil
	}
	token := uuid.NewString()
	l.locks[key] = token
	return true, token, nil
}

func (l *MemoryLocker) Unlock(_ context.Context, key, lockValue string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] != lockValue {
		return exceptions.ErrRedisUnlock(nil)
	}
	delete(l.locks, key)
	return nil
}

func (l *MemoryLocker) Refresh(_ context.Context, key, lockValue string, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] != lockValue {
		return exceptions.ErrRedisUnlock(nil)
	}
	return nil
}
