package deadline

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/app/services/shared/bus"
	"clinic-booking-service/internal/app/services/shared/locker"
	"clinic-booking-service/internal/pkg/constvars"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeRedisRepository mimics the production repository closely enough for the
// scheduler: values are stored JSON-encoded and the sorted set keeps scores.
type fakeRedisRepository struct {
	values   map[string]string
	scores   map[string]float64
	failGets int
}

func newFakeRedisRepository() *fakeRedisRepository {
	return &fakeRedisRepository{
		values: make(map[string]string),
		scores: make(map[string]float64),
	}
}

func (f *fakeRedisRepository) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeRedisRepository) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.values[key] = string(data)
	return nil
}

func (f *fakeRedisRepository) Get(_ context.Context, key string) (string, error) {
	if f.failGets > 0 {
		f.failGets--
		return "", errors.New("redis: connection reset")
	}
	return f.values[key], nil
}

func (f *fakeRedisRepository) TrySetNX(_ context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	if _, held := f.values[key]; held {
		return false, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	f.values[key] = string(data)
	return true, nil
}

func (f *fakeRedisRepository) ZAdd(_ context.Context, _ string, score float64, member string) error {
	f.scores[member] = score
	return nil
}

func (f *fakeRedisRepository) ZRangeByScoreWithLimit(_ context.Context, _ string, min, max float64, limit int64) ([]string, error) {
	var members []string
	for member, score := range f.scores {
		if score >= min && score <= max && int64(len(members)) < limit {
			members = append(members, member)
		}
	}
	return members, nil
}

func (f *fakeRedisRepository) ZRem(_ context.Context, _ string, members ...string) (int64, error) {
	var removed int64
	for _, member := range members {
		if _, ok := f.scores[member]; ok {
			delete(f.scores, member)
			removed++
		}
	}
	return removed, nil
}

func newTestScheduler() (*redisScheduler, *fakeRedisRepository) {
	repo := newFakeRedisRepository()
	return &redisScheduler{redis: repo, log: zap.NewNop()}, repo
}

func TestRedisSchedulerSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("Scheduled Deadline Becomes Due After Its Fire Time", func(t *testing.T) {
		scheduler, _ := newTestScheduler()

		deadlineID, err := scheduler.Schedule(ctx, time.Minute, constvars.DeadlineBooking, "booking-1")
		assert.NoError(t, err, "scheduling should succeed")
		assert.NotEmpty(t, deadlineID, "a handle should be returned")

		due, err := scheduler.claimDue(ctx, time.Now(), 64)
		assert.NoError(t, err)
		assert.Empty(t, due, "a deadline a minute out must not be due yet")

		due, err = scheduler.claimDue(ctx, time.Now().Add(2*time.Minute), 64)
		assert.NoError(t, err)
		if assert.Len(t, due, 1, "the deadline should be due after its fire time") {
			assert.Equal(t, constvars.DeadlineBooking, due[0].Name)
			assert.Equal(t, "booking-1", due[0].CorrelationID)
			assert.Equal(t, deadlineID, due[0].DeadlineID)
		}
	})

	t.Run("Claimed Deadline Fires Exactly Once", func(t *testing.T) {
		scheduler, _ := newTestScheduler()

		_, err := scheduler.Schedule(ctx, time.Second, constvars.DeadlineBooking, "booking-2")
		assert.NoError(t, err)

		later := time.Now().Add(time.Minute)
		first, err := scheduler.claimDue(ctx, later, 64)
		assert.NoError(t, err)
		assert.Len(t, first, 1)

		second, err := scheduler.claimDue(ctx, later, 64)
		assert.NoError(t, err)
		assert.Empty(t, second, "a second poll must not see the claimed deadline")
	})

	t.Run("Deadline Survives A Transient Entry Read Failure", func(t *testing.T) {
		scheduler, repo := newTestScheduler()

		deadlineID, err := scheduler.Schedule(ctx, time.Second, constvars.DeadlineBooking, "booking-6")
		assert.NoError(t, err)

		later := time.Now().Add(time.Minute)
		repo.failGets = 1
		due, err := scheduler.claimDue(ctx, later, 64)
		assert.NoError(t, err)
		assert.Empty(t, due, "a failed entry read must not fire the deadline")
		assert.Contains(t, repo.scores, deadlineID,
			"the member must stay in the schedule for the next tick")

		due, err = scheduler.claimDue(ctx, later, 64)
		assert.NoError(t, err)
		if assert.Len(t, due, 1, "the deadline should fire once the read recovers") {
			assert.Equal(t, "booking-6", due[0].CorrelationID)
		}
	})

	t.Run("Expired Entry Body Drops The Orphaned Member", func(t *testing.T) {
		scheduler, repo := newTestScheduler()

		deadlineID, err := scheduler.Schedule(ctx, time.Second, constvars.DeadlineBooking, "booking-7")
		assert.NoError(t, err)

		// Simulate the entry body expiring past its TTL while the member is
		// still scheduled.
		delete(repo.values, "deadline:entry:"+deadlineID)

		later := time.Now().Add(time.Minute)
		due, err := scheduler.claimDue(ctx, later, 64)
		assert.NoError(t, err)
		assert.Empty(t, due, "an orphaned member must not fire")
		assert.NotContains(t, repo.scores, deadlineID,
			"the orphaned member must be removed, not retried forever")
	})
}

func TestRedisSchedulerCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("Cancelled Deadline Never Fires", func(t *testing.T) {
		scheduler, repo := newTestScheduler()

		deadlineID, err := scheduler.Schedule(ctx, time.Second, constvars.DeadlineRetryCreatePatient, "booking-3")
		assert.NoError(t, err)

		err = scheduler.Cancel(ctx, constvars.DeadlineRetryCreatePatient, deadlineID)
		assert.NoError(t, err)

		due, err := scheduler.claimDue(ctx, time.Now().Add(time.Minute), 64)
		assert.NoError(t, err)
		assert.Empty(t, due, "a cancelled deadline must not come due")
		assert.Empty(t, repo.values, "the entry body should be cleaned up")
	})

	t.Run("Cancelling An Already Fired Deadline Is A No-Op", func(t *testing.T) {
		scheduler, _ := newTestScheduler()

		deadlineID, err := scheduler.Schedule(ctx, time.Second, constvars.DeadlineBooking, "booking-4")
		assert.NoError(t, err)

		_, err = scheduler.claimDue(ctx, time.Now().Add(time.Minute), 64)
		assert.NoError(t, err)

		err = scheduler.Cancel(ctx, constvars.DeadlineBooking, deadlineID)
		assert.NoError(t, err, "cancelling after the fire must not error")
	})
}

func TestWorkerTick(t *testing.T) {
	ctx := context.Background()

	t.Run("Due Deadline Is Published As A Correlated Event", func(t *testing.T) {
		scheduler, _ := newTestScheduler()
		events := bus.NewMemoryBus()
		worker := &Worker{
			scheduler: scheduler,
			locker:    locker.NewMemoryLocker(),
			publisher: events,
			log:       zap.NewNop(),
			interval:  time.Millisecond,
		}

		_, err := scheduler.Schedule(ctx, -time.Second, constvars.DeadlineBooking, "booking-5")
		assert.NoError(t, err)

		worker.tick(ctx)

		fired := events.PublishedNamed(constvars.EventDeadlineFired)
		if assert.Len(t, fired, 1, "one fired event should be published") {
			assert.Equal(t, "booking-5", fired[0].CorrelationID,
				"the fired event must carry the deadline's correlation id")

			var event models.DeadlineFiredEvent
			assert.NoError(t, json.Unmarshal(fired[0].Payload, &event))
			assert.Equal(t, constvars.DeadlineBooking, event.Name)
		}
	})
}
