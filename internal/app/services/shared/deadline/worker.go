package deadline

import (
	"context"
	"time"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"

	"go.uber.org/zap"
)

const (
	pollLockKey   = "deadline:poller:leader"
	pollBatchSize = 64
)

// Worker polls the schedule and turns due deadlines into DeadlineFired events
// on the bus. A Redis leader lock keeps exactly one replica polling; losing
// the lock mid-batch is harmless because claimDue removes before publishing.
type Worker struct {
	scheduler *redisScheduler
	locker    contracts.LockerService
	publisher contracts.EventPublisher
	log       *zap.Logger
	interval  time.Duration
}

func NewWorker(
	scheduler contracts.DeadlineScheduler,
	locker contracts.LockerService,
	publisher contracts.EventPublisher,
	logger *zap.Logger,
	interval time.Duration,
) *Worker {
	redisSched, ok := scheduler.(*redisScheduler)
	if !ok {
		logger.Fatal("deadline.NewWorker requires the redis-backed scheduler")
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{
		scheduler: redisSched,
		locker:    locker,
		publisher: publisher,
		log:       logger,
		interval:  interval,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	acquired, lockValue, err := w.locker.TryLock(ctx, pollLockKey, 2*w.interval)
	if err != nil {
		w.log.Error("deadlineWorker.tick cannot acquire leader lock", zap.Error(err))
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, pollLockKey, lockValue); err != nil {
			w.log.Warn("deadlineWorker.tick cannot release leader lock", zap.Error(err))
		}
	}()

	due, err := w.scheduler.claimDue(ctx, time.Now(), pollBatchSize)
	if err != nil {
		w.log.Error("deadlineWorker.tick cannot claim due deadlines", zap.Error(err))
	}

	for _, e := range due {
		event := models.DeadlineFiredEvent{
			DeadlineID:    e.DeadlineID,
			Name:          e.Name,
			CorrelationID: e.CorrelationID,
		}
		if err := w.publisher.Publish(ctx, constvars.EventDeadlineFired, e.CorrelationID, event); err != nil {
			w.log.Error("deadlineWorker.tick cannot publish fired deadline",
				zap.String(constvars.LoggingDeadlineNameKey, e.Name),
				zap.String(constvars.LoggingDeadlineIDKey, e.DeadlineID),
				zap.Error(err),
			)
			continue
		}
		w.log.Info("deadlineWorker.tick deadline fired",
			zap.String(constvars.LoggingDeadlineNameKey, e.Name),
			zap.String(constvars.LoggingDeadlineIDKey, e.DeadlineID),
			zap.String(constvars.LoggingCorrelationIDKey, e.CorrelationID),
		)
	}
}
