// Package retry runs an attempt repeatedly with a fixed pause until it
// succeeds or a wall-clock deadline passes.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"smokectl/pkg/logging"
)

// ErrAttemptFailed is recorded for attempts that report failure without an error.
var ErrAttemptFailed = errors.New("attempt failed")

// Attempt is one try. A nil error is success.
type Attempt func(ctx context.Context) error

// Outcome summarises a retry loop.
type Outcome struct {
	Passed   bool
	Attempts int
	LastErr  error
	Elapsed  time.Duration
}

// Orchestrator owns the clock used for deadlines and pauses.
type Orchestrator struct {
	Clock clock.Clock
}

// New returns an Orchestrator on the wall clock.
func New() *Orchestrator {
	return &Orchestrator{Clock: clock.RealClock{}}
}

// Until calls attempt until it returns nil or deadline has elapsed since the
// call started, pausing interval between attempts. Errors and panics inside
// attempt count as failed attempts. The deadline is checked before every
// attempt, so a loop never starts an attempt after it has expired. A
// cancelled ctx ends the loop as failed.
func (o *Orchestrator) Until(ctx context.Context, name string, deadline, interval time.Duration, attempt Attempt) Outcome {
	subsystem := "Retry-" + name
	start := o.Clock.Now()
	end := start.Add(deadline)

	var out Outcome
	for o.Clock.Now().Before(end) {
		if ctx.Err() != nil {
			out.LastErr = ctx.Err()
			break
		}

		out.Attempts++
		err := call(ctx, attempt)
		if err == nil {
			out.Passed = true
			break
		}
		out.LastErr = err
		logging.Debug(subsystem, "Attempt %d failed: %v", out.Attempts, err)

		if err := o.sleep(ctx, interval); err != nil {
			out.LastErr = err
			break
		}
	}

	out.Elapsed = o.Clock.Since(start)
	if !out.Passed {
		logging.Debug(subsystem, "Giving up after %d attempt(s) in %s", out.Attempts, out.Elapsed.Round(time.Millisecond))
	}
	return out
}

// RetryUntil is the boolean form of Until on the wall clock.
func RetryUntil(deadline, interval time.Duration, attempt func() bool) bool {
	return New().Until(context.Background(), "adhoc", deadline, interval, func(context.Context) error {
		if attempt() {
			return nil
		}
		return ErrAttemptFailed
	}).Passed
}

// call runs attempt, turning a panic into an error.
func call(ctx context.Context, attempt Attempt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("attempt panicked: %v", r)
		}
	}()
	return attempt(ctx)
}

// sleep pauses for d or until ctx is done. Contexts that can never be
// cancelled use Clock.Sleep directly, which lets fake clocks advance.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if ctx.Done() == nil {
		o.Clock.Sleep(d)
		return nil
	}

	timer := o.Clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}
