package alarm

import "time"

// NextOccurrence computes the next absolute instant a time of day with a
// weekly repeat mask occurs strictly after now. All calendar arithmetic
// happens in now's location.
//
// Without repeat flags the candidate is today at the time of day, pushed to
// tomorrow when it has already passed. With repeat flags the scan walks day
// offsets 0..6 from today and takes the first flagged day whose candidate is
// still ahead; when every flagged candidate this week has passed, the scan
// wraps to the same weekdays next week.
func NextOccurrence(now time.Time, tod TimeOfDay, mask RepeatMask) time.Time {
	today := tod.On(now)

	if !mask.Any() {
		if today.After(now) {
			return today
		}

		return today.AddDate(0, 0, 1)
	}

	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i).Weekday()
		if !mask.On(day) {
			continue
		}

		candidate := today.AddDate(0, 0, i)
		if candidate.After(now) {
			return candidate
		}
	}

	// Every flagged time this week has passed already, wrap to next week.
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i).Weekday()
		if mask.On(day) {
			return today.AddDate(0, 0, i+7)
		}
	}

	// Unreachable: mask.Any() guarantees a flagged day above.
	return today
}

// DueAt reports whether the alarm's time of day matches the minute of the
// provided instant and, for repeating alarms, whether its weekday is flagged.
// Non-repeating alarms are due on any minute match.
func (a *Alarm) DueAt(now time.Time) bool {
	if a.Time.Hour != now.Hour() || a.Time.Minute != now.Minute() {
		return false
	}

	if !a.IsRepeating() {
		return true
	}

	return a.RepeatMask.On(now.Weekday())
}
