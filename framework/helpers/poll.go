package helpers

import (
	"context"
	"errors"
	"time"
)

// ErrPollTimedOut is returned by PollUntil when the condition was never satisfied.
var ErrPollTimedOut = errors.New("condition not met before timeout")

// PollUntil calls check immediately and then once per interval, until check returns true or an
// error, the timeout elapses, or ctx is done. The time passed to check is the time of that
// observation.
//
// A timeout returns ErrPollTimedOut; a cancelled context returns ctx.Err(). There is no way to
// wait forever: a non-positive timeout means the condition is checked exactly once.
func PollUntil(
	ctx context.Context,
	interval time.Duration,
	timeout time.Duration,
	check func(now time.Time) (bool, error),
) error {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	done, err := check(time.Now())
	if err != nil || done {
		return err
	}
	if timeout <= 0 {
		return ErrPollTimedOut
	}

	deadlineTimer := time.NewTimer(timeout)
	defer deadlineTimer.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadlineTimer.C:
			// one last look, so a condition that became true during the final interval still counts
			done, err := check(time.Now())
			if err != nil || done {
				return err
			}
			return ErrPollTimedOut
		case now := <-ticker.C:
			if now.After(deadline) {
				continue // let the deadline case decide
			}
			done, err := check(now)
			if err != nil || done {
				return err
			}
		}
	}
}
