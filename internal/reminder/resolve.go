package reminder

import (
	"sort"
	"time"
)

// Resolve maps reminders and a half-open window (start, end] to the set of
// occurrences falling due inside it: for each reminder, one occurrence per
// calendar day whose hour:minute instant lies in the window. A multi-day
// window (downtime catch-up) therefore yields one occurrence per owed day.
//
// Calendar math uses start's Location. Results are ordered by instant
// ascending, then CreatedAt, then ID, so delivery order is deterministic
// when reminders share an instant.
//
// Resolve is pure: it never touches storage or the clock.
func Resolve(reminders []Reminder, start, end time.Time) []Occurrence {
	if !end.After(start) {
		return nil
	}
	loc := start.Location()

	var out []Occurrence
	for _, r := range reminders {
		y, m, d := start.Date()
		// First candidate is on start's calendar day; earlier days cannot
		// intersect (start, end].
		for t := time.Date(y, m, d, r.Hour, r.Minute, 0, 0, loc); !t.After(end); t = t.AddDate(0, 0, 1) {
			if t.After(start) {
				out = append(out, Occurrence{Reminder: r, At: t})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		if !out[i].Reminder.CreatedAt.Equal(out[j].Reminder.CreatedAt) {
			return out[i].Reminder.CreatedAt.Before(out[j].Reminder.CreatedAt)
		}
		return out[i].Reminder.ID < out[j].Reminder.ID
	})
	return out
}
