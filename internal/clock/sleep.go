// Package clock holds the waiting primitives shared by retry and polling loops.
package clock

import (
	"context"
	"time"
)

// SleepWithContext blocks for d or until ctx ends, whichever comes first, and
// returns ctx.Err() in the latter case. A non-positive d only reports whether
// ctx is already done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
