package schedule

import (
	"testing"
	"time"
)

func date(h, m int) time.Time {
	return time.Date(2026, time.March, 10, h, m, 0, 0, time.UTC)
}

func TestRecurrenceFirst(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  Recurrence
		now  time.Time
		want time.Time
	}{
		{
			name: "anchor later today",
			rec:  Recurrence{Unit: UnitDay, Count: 1, TimeOfDay: "15:00"},
			now:  date(10, 0),
			want: date(15, 0),
		},
		{
			name: "anchor already passed rolls to tomorrow",
			rec:  Recurrence{Unit: UnitDay, Count: 1, TimeOfDay: "09:00"},
			now:  date(10, 0),
			want: date(9, 0).Add(24 * time.Hour),
		},
		{
			name: "hourly steps from todays anchor",
			rec:  Recurrence{Unit: UnitHour, Count: 3, TimeOfDay: "09:52"},
			now:  date(10, 0),
			want: date(12, 52),
		},
		{
			name: "exactly at anchor is not due yet",
			rec:  Recurrence{Unit: UnitHour, Count: 2, TimeOfDay: "10:00"},
			now:  date(10, 0),
			want: date(12, 0),
		},
		{
			name: "multi day count",
			rec:  Recurrence{Unit: UnitDay, Count: 3, TimeOfDay: "08:00"},
			now:  date(10, 0),
			want: date(8, 0).Add(3 * 24 * time.Hour),
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.rec.First(tc.now)
			if !got.Equal(tc.want) {
				t.Errorf("First(%v) = %v, want %v", tc.now, got, tc.want)
			}
			if !got.After(tc.now) {
				t.Errorf("First(%v) = %v, not strictly in the future", tc.now, got)
			}
		})
	}
}

func TestRecurrenceInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rec  Recurrence
		want time.Duration
	}{
		{Recurrence{Unit: UnitHour, Count: 1}, time.Hour},
		{Recurrence{Unit: UnitHour, Count: 6}, 6 * time.Hour},
		{Recurrence{Unit: UnitDay, Count: 1}, 24 * time.Hour},
		{Recurrence{Unit: UnitDay, Count: 2}, 48 * time.Hour},
	}
	for _, tc := range tests {
		tc := tc
		if got := tc.rec.Interval(); got != tc.want {
			t.Errorf("%+v Interval() = %v, want %v", tc.rec, got, tc.want)
		}
	}
}

func TestRecurrenceValidate(t *testing.T) {
	t.Parallel()

	good := Recurrence{Unit: UnitHour, Count: 2, TimeOfDay: "10:30"}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate(%+v): %v", good, err)
	}

	bad := []Recurrence{
		{Unit: "week", Count: 1, TimeOfDay: "10:00"},
		{Unit: UnitHour, Count: 0, TimeOfDay: "10:00"},
		{Unit: UnitDay, Count: 1, TimeOfDay: "25:00"},
		{Unit: UnitDay, Count: 1, TimeOfDay: ""},
	}
	for _, r := range bad {
		if err := r.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", r)
		}
	}
}
