package reminder

import "time"

// WallClock reads the host clock in a fixed location, truncated to the
// minute (reminders trigger at minute granularity).
type WallClock struct {
	Loc *time.Location
}

func (c WallClock) Now() time.Time {
	loc := c.Loc
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc).Truncate(time.Minute)
}
