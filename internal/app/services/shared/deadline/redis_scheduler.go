package deadline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	scheduleKey    = "deadline:schedule"
	entryKeyPrefix = "deadline:entry:"

	// Entry bodies outlive their fire time only while the poller is down;
	// a generous TTL keeps Redis from accumulating orphans forever.
	entryTTL = 7 * 24 * time.Hour
)

type entry struct {
	DeadlineID    string `json:"deadline_id"`
	Name          string `json:"name"`
	CorrelationID string `json:"correlation_id"`
}

// redisScheduler keeps pending deadlines in a sorted set scored by fire time
// in unix milliseconds, with the entry body in a companion key. Members are
// deadline ids, so cancellation is a plain ZREM and survives restarts.
type redisScheduler struct {
	redis contracts.RedisRepository
	log   *zap.Logger
}

var (
	schedulerInstance *redisScheduler
	schedulerOnce     sync.Once
)

func NewRedisScheduler(redis contracts.RedisRepository, logger *zap.Logger) contracts.DeadlineScheduler {
	schedulerOnce.Do(func() {
		schedulerInstance = &redisScheduler{redis: redis, log: logger}
	})
	return schedulerInstance
}

func (s *redisScheduler) Schedule(ctx context.Context, duration time.Duration, name, correlationID string) (string, error) {
	deadlineID := uuid.NewString()

	e := entry{
		DeadlineID:    deadlineID,
		Name:          name,
		CorrelationID: correlationID,
	}
	if err := s.redis.Set(ctx, entryKeyPrefix+deadlineID, e, entryTTL); err != nil {
		return "", err
	}

	fireAt := time.Now().Add(duration).UnixMilli()
	if err := s.redis.ZAdd(ctx, scheduleKey, float64(fireAt), deadlineID); err != nil {
		return "", err
	}

	s.log.Debug("deadlineScheduler.Schedule registered",
		zap.String(constvars.LoggingDeadlineNameKey, name),
		zap.String(constvars.LoggingDeadlineIDKey, deadlineID),
		zap.String(constvars.LoggingCorrelationIDKey, correlationID),
		zap.Duration("duration", duration),
	)
	return deadlineID, nil
}

// Cancel removes a pending deadline. Cancelling an id that already fired or
// was never scheduled is a no-op; the scheduler cannot tell the two apart and
// callers do not need it to.
func (s *redisScheduler) Cancel(ctx context.Context, name, deadlineID string) error {
	removed, err := s.redis.ZRem(ctx, scheduleKey, deadlineID)
	if err != nil {
		return err
	}
	if removed > 0 {
		if err := s.redis.Delete(ctx, entryKeyPrefix+deadlineID); err != nil {
			return err
		}
	}

	s.log.Debug("deadlineScheduler.Cancel done",
		zap.String(constvars.LoggingDeadlineNameKey, name),
		zap.String(constvars.LoggingDeadlineIDKey, deadlineID),
		zap.Int64("removed", removed),
	)
	return nil
}

// claimDue pops up to limit deadlines whose fire time has passed. ZREM is the
// claim: only the caller that removes the member owns the entry, so even two
// pollers racing past the leader lock cannot fire the same deadline twice.
func (s *redisScheduler) claimDue(ctx context.Context, now time.Time, limit int64) ([]entry, error) {
	members, err := s.redis.ZRangeByScoreWithLimit(ctx, scheduleKey, 0, float64(now.UnixMilli()), limit)
	if err != nil {
		return nil, err
	}

	var due []entry
	for _, deadlineID := range members {
		// Read the body before claiming: a failed read leaves the member in
		// the set for the next tick instead of losing the deadline.
		raw, err := s.redis.Get(ctx, entryKeyPrefix+deadlineID)
		if err != nil {
			s.log.Warn("deadlineScheduler.claimDue entry read failed, retrying next tick",
				zap.String(constvars.LoggingDeadlineIDKey, deadlineID),
				zap.Error(err),
			)
			continue
		}

		removed, err := s.redis.ZRem(ctx, scheduleKey, deadlineID)
		if err != nil {
			return due, err
		}
		if removed == 0 {
			continue
		}

		if raw == "" {
			// Body expired past its TTL; the claim above already dropped the
			// orphaned member.
			s.log.Warn("deadlineScheduler.claimDue entry body expired, dropping",
				zap.String(constvars.LoggingDeadlineIDKey, deadlineID),
			)
			continue
		}

		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return due, exceptions.ErrCannotParseJSON(fmt.Errorf("deadline entry %s: %w", deadlineID, err))
		}
		if err := s.redis.Delete(ctx, entryKeyPrefix+deadlineID); err != nil {
			return due, err
		}

		due = append(due, e)
	}
	return due, nil
}
