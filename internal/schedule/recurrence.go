package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is the recurrence step unit.
type Unit string

const (
	UnitHour Unit = "hour"
	UnitDay  Unit = "day"
)

// Recurrence is a normalized delivery schedule: every Count units,
// anchored at TimeOfDay (HH:MM, UTC).
//
// Values are produced by ParseRecurrence or rehydrated from storage;
// nothing else should construct them ad hoc.
type Recurrence struct {
	Unit      Unit   `json:"unit"`
	Count     int    `json:"count"`
	TimeOfDay string `json:"time_of_day"` // "HH:MM", UTC
}

// Interval returns the duration of one recurrence step.
func (r Recurrence) Interval() time.Duration {
	step := time.Hour
	if r.Unit == UnitDay {
		step = 24 * time.Hour
	}
	n := r.Count
	if n < 1 {
		n = 1
	}
	return time.Duration(n) * step
}

// Advance returns t plus one recurrence step.
func (r Recurrence) Advance(t time.Time) time.Time {
	return t.Add(r.Interval())
}

// First computes the initial fire time relative to now: today's
// occurrence of TimeOfDay (UTC), advanced by whole recurrence steps
// until it is strictly in the future. The result is never <= now.
func (r Recurrence) First(now time.Time) time.Time {
	now = now.UTC()
	h, m, err := ParseHHMM(r.TimeOfDay)
	if err != nil {
		h, m = 12, 0
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, time.UTC)
	for !t.After(now) {
		t = r.Advance(t)
	}
	return t
}

// Validate reports whether the recurrence satisfies its invariants.
func (r Recurrence) Validate() error {
	if r.Unit != UnitHour && r.Unit != UnitDay {
		return fmt.Errorf("%w: %q", ErrInvalidUnit, string(r.Unit))
	}
	if r.Count < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidNumber, r.Count)
	}
	if _, _, err := ParseHHMM(r.TimeOfDay); err != nil {
		return err
	}
	return nil
}

// ParseHHMM parses a "HH:MM" wall-clock string.
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q, expected HH:MM", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidTime, s)
	}
	return h, m, nil
}
