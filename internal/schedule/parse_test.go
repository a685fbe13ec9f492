package schedule

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestParseRecurrence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tokens string
		want   Recurrence
	}{
		{"hours full", "3 hours 09:30", Recurrence{UnitHour, 3, "09:30"}},
		{"hour singular", "1 hour", Recurrence{UnitHour, 1, "12:00"}},
		{"h short", "6 h 00:15", Recurrence{UnitHour, 6, "00:15"}},
		{"days full", "2 days 23:59", Recurrence{UnitDay, 2, "23:59"}},
		{"day singular", "1 day", Recurrence{UnitDay, 1, "12:00"}},
		{"d short", "7 d", Recurrence{UnitDay, 7, "12:00"}},
		{"unit mixed case", "4 Hours", Recurrence{UnitHour, 4, "12:00"}},
		{"unit upper", "1 DAY 08:00", Recurrence{UnitDay, 1, "08:00"}},
		{"single digit time", "1 day 8:05", Recurrence{UnitDay, 1, "08:05"}},
		{"extra tokens ignored", "2 hours 10:00 please", Recurrence{UnitHour, 2, "10:00"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRecurrence(strings.Fields(tc.tokens))
			if err != nil {
				t.Fatalf("ParseRecurrence(%q): %v", tc.tokens, err)
			}
			if got != tc.want {
				t.Errorf("ParseRecurrence(%q) = %+v, want %+v", tc.tokens, got, tc.want)
			}
		})
	}
}

func TestParseRecurrenceSpellingGrid(t *testing.T) {
	t.Parallel()

	spellings := map[string]Unit{
		"h": UnitHour, "hour": UnitHour, "hours": UnitHour,
		"d": UnitDay, "day": UnitDay, "days": UnitDay,
		"H": UnitHour, "HOURS": UnitHour, "Days": UnitDay,
	}
	for _, count := range []int{1, 2, 10, 100} {
		for spelling, unit := range spellings {
			got, err := ParseRecurrence([]string{strconv.Itoa(count), spelling, "07:45"})
			if err != nil {
				t.Fatalf("ParseRecurrence(%d %s): %v", count, spelling, err)
			}
			want := Recurrence{Unit: unit, Count: count, TimeOfDay: "07:45"}
			if got != want {
				t.Errorf("ParseRecurrence(%d %s) = %+v, want %+v", count, spelling, got, want)
			}
		}
	}
}

func TestParseRecurrenceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tokens string
		want   error
	}{
		{"empty", "", ErrInvalidNumber},
		{"count only", "3", ErrInvalidNumber},
		{"zero count", "0 hours", ErrInvalidNumber},
		{"negative count", "-2 days", ErrInvalidNumber},
		{"count not a number", "two hours", ErrInvalidNumber},
		{"unknown unit", "3 weeks", ErrInvalidUnit},
		{"unit is a number", "3 4", ErrInvalidUnit},
		{"bad hour", "1 day 24:00", ErrInvalidTime},
		{"bad minute", "1 day 10:60", ErrInvalidTime},
		{"no colon", "1 day 1030", ErrInvalidTime},
		{"garbage time", "1 day ab:cd", ErrInvalidTime},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseRecurrence(strings.Fields(tc.tokens))
			if !errors.Is(err, tc.want) {
				t.Errorf("ParseRecurrence(%q) err = %v, want errors.Is(%v)", tc.tokens, err, tc.want)
			}
		})
	}
}
