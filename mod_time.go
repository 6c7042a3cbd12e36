package gekko2d

import (
	"time"
)

type Time struct {
	Time  time.Time
	Dt    time.Duration
	Frame uint64
}

type TimeModule struct {
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	now := mod.Now
	if now == nil {
		now = time.Now
	}
	cmd.AddResources(&Time{
		Time: now(),
		Dt:   0,
	})
	cmd.AddResources(&clock{now: now})
	cmd.UseSystem(System(timeSystem).InStage(Prelude))
}

type clock struct {
	now func() time.Time
}

func timeSystem(timeResource *Time, c *clock) {
	now := c.now()

	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Time = now
	timeResource.Frame++
}
