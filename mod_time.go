package snowscene

import (
	"time"
)

// Time is the frame clock. Elapsed counts from the first frame.
type Time struct {
	Start   time.Time
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration

	now func() time.Time
}

// Seconds returns the elapsed time in seconds.
func (t *Time) Seconds() float64 {
	return t.Elapsed.Seconds()
}

type TimeModule struct {
	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	now := mod.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	cmd.AddResources(&Time{
		Start: start,
		Time:  start,
		now:   now,
	})
	app.UseSystem(
		System(timeSystem).
			InStage(Prelude).
			RunAlways(),
	)
}

func timeSystem(timeResource *Time) {
	current := timeResource.now()

	timeResource.Dt = current.Sub(timeResource.Time)
	timeResource.Time = current
	timeResource.Elapsed = current.Sub(timeResource.Start)
}
