package schedule

import "time"

// Clock supplies the scheduler's reference time. All arithmetic is UTC;
// tests inject a fake to drive fire times deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }
