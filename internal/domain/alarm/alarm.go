package alarm

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date, second resolution.
// It is stored as "HH:MM:SS" text.
type TimeOfDay struct {
	// Hour in 0..23.
	Hour int
	// Minute in 0..59.
	Minute int
	// Second in 0..59.
	Second int
}

// errBadTimeOfDay is returned when a time of day string cannot be parsed.
var errBadTimeOfDay = errors.New("time of day must be HH:MM:SS")

// ParseTimeOfDay parses "HH:MM:SS" into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay

	n, err := fmt.Sscanf(s, "%02d:%02d:%02d", &t.Hour, &t.Minute, &t.Second)
	if err != nil || n != 3 {
		return TimeOfDay{}, errBadTimeOfDay
	}

	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return TimeOfDay{}, errBadTimeOfDay
	}

	return t, nil
}

// String renders the time of day as "HH:MM:SS".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On anchors the time of day to the date of the provided instant, in its location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, t.Second, 0, day.Location())
}

// Value implements driver.Valuer so gorm stores the "HH:MM:SS" text form.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner for the "HH:MM:SS" text form.
func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}

		*t = parsed

		return nil
	case []byte:
		return t.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

// MarshalJSON renders the "HH:MM:SS" text form.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses the "HH:MM:SS" text form.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// RepeatMask holds the seven independent weekday repeat flags.
type RepeatMask struct {
	Monday    bool `gorm:"column:repeat_monday"    json:"repeat_monday"`
	Tuesday   bool `gorm:"column:repeat_tuesday"   json:"repeat_tuesday"`
	Wednesday bool `gorm:"column:repeat_wednesday" json:"repeat_wednesday"`
	Thursday  bool `gorm:"column:repeat_thursday"  json:"repeat_thursday"`
	Friday    bool `gorm:"column:repeat_friday"    json:"repeat_friday"`
	Saturday  bool `gorm:"column:repeat_saturday"  json:"repeat_saturday"`
	Sunday    bool `gorm:"column:repeat_sunday"    json:"repeat_sunday"`
}

// Any reports whether at least one weekday flag is set.
func (m RepeatMask) Any() bool {
	return m.Monday || m.Tuesday || m.Wednesday || m.Thursday || m.Friday || m.Saturday || m.Sunday
}

// On reports whether the flag of the provided weekday is set.
func (m RepeatMask) On(day time.Weekday) bool {
	switch day {
	case time.Monday:
		return m.Monday
	case time.Tuesday:
		return m.Tuesday
	case time.Wednesday:
		return m.Wednesday
	case time.Thursday:
		return m.Thursday
	case time.Friday:
		return m.Friday
	case time.Saturday:
		return m.Saturday
	case time.Sunday:
		return m.Sunday
	default:
		return false
	}
}

// Alarm is one scheduled control event owned by a schedule group.
type Alarm struct {
	// ID is the primary key.
	ID uint `gorm:"primaryKey" json:"id"`
	// GroupID references the owning schedule group.
	GroupID uint `gorm:"index;not null" json:"group_id"`
	// Label is a display name, optional.
	Label string `gorm:"size:100" json:"label"`
	// Duration is how long the actuation lasts, in seconds.
	// It is an opaque payload field, not scheduling-relevant.
	Duration int64 `json:"duration"`
	// Time is the wall-clock time of day the alarm fires,
	// interpreted in the configured timezone.
	Time TimeOfDay `gorm:"type:text;not null" json:"time"`
	// IsActive reports whether the alarm participates in scheduling.
	IsActive bool `gorm:"default:true" json:"is_active"`
	// RepeatMask holds the weekly repeat flags.
	RepeatMask `gorm:"embedded"`
	// TaskHandle references the single outstanding task queue execution
	// for this alarm, empty when unscheduled. At most one live handle
	// exists per alarm at any time.
	TaskHandle string `gorm:"size:64" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRepeating reports whether the alarm has a weekly repeat schedule.
// It is derived from the mask, never stored.
func (a *Alarm) IsRepeating() bool {
	return a.RepeatMask.Any()
}

// NextOccurrence computes the next absolute instant the alarm fires after now.
func (a *Alarm) NextOccurrence(now time.Time) time.Time {
	return NextOccurrence(now, a.Time, a.RepeatMask)
}

// Clone returns a copy of the alarm to avoid leaking internal references.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}
