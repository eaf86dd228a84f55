package testcase

import (
	"context"
	"time"

	"github.com/gclaussn/go-bpmndt/engine"
)

// Epsilon is added to a due date, when the clock is advanced, so that the due task is definitely due.
const Epsilon = time.Millisecond

// Clock is the logical time of a test case. It is held by the driver and written to the engine, whenever a timer
// must become due.
type Clock struct {
	e   engine.Engine
	now time.Time
}

func newClock(e engine.Engine) *Clock {
	return &Clock{e: e}
}

// Advance sets the engine's time to just past the given due date.
// If the engine's time is already beyond, the time is not changed.
func (c *Clock) Advance(ctx context.Context, dueAt time.Time) error {
	t := dueAt.Add(Epsilon)

	err := c.e.SetTime(ctx, engine.SetTimeCmd{Time: t})
	if err != nil {
		if engineErr, ok := err.(engine.Error); ok && engineErr.Type == engine.ErrorConflict {
			return nil
		}
		return err
	}

	c.now = t.UTC().Truncate(time.Millisecond)
	return nil
}

// Now returns the last time, the clock has been advanced to, or the zero time.
func (c *Clock) Now() time.Time {
	return c.now
}
