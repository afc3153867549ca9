package contracts

import (
	"context"
	"time"
)

// DeadlineScheduler schedules named, cancellable timers. Firing delivers a
// DeadlineFiredEvent on the event bus, correlated like any other event, so the
// saga has no separate timeout path. Several independently named timers may be
// outstanding for the same correlation id.
type DeadlineScheduler interface {
	Schedule(ctx context.Context, duration time.Duration, name, correlationID string) (string, error)
	Cancel(ctx context.Context, name, deadlineID string) error
}
