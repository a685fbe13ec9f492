package dialog

import (
	"testing"

	"reportbot/internal/schedule"
)

func TestHumanView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rec  schedule.Recurrence
		want string
	}{
		{schedule.Recurrence{Unit: schedule.UnitHour, Count: 1, TimeOfDay: "09:30"}, "every hour at 09:30 UTC"},
		{schedule.Recurrence{Unit: schedule.UnitHour, Count: 3, TimeOfDay: "09:52"}, "every 3 hours at 09:52 UTC"},
		{schedule.Recurrence{Unit: schedule.UnitDay, Count: 1, TimeOfDay: "12:00"}, "every day at 12:00 UTC"},
		{schedule.Recurrence{Unit: schedule.UnitDay, Count: 2, TimeOfDay: "08:00"}, "every 2 days at 08:00 UTC"},
	}
	for _, tc := range tests {
		if got := humanView(tc.rec); got != tc.want {
			t.Errorf("humanView(%+v) = %q, want %q", tc.rec, got, tc.want)
		}
	}
}

func TestNormalizeChoice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Market", "market"},
		{"  market  ", "market"},
		{"📈 Market", "market"},
		{"⚙️ Manage", "manage"},
		{"REMOVE   ALL", "remove all"},
		{"Go Back", "go back"},
		{"", ""},
		{"🙂", ""},
	}
	for _, tc := range tests {
		if got := normalizeChoice(tc.in); got != tc.want {
			t.Errorf("normalizeChoice(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseHistoryPeriod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"30", 30, true},
		{"1", 1, true},
		{"all", 0, true},
		{"all-time", 0, true},
		{"all time", 0, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"soon", 0, false},
	}
	for _, tc := range tests {
		got, ok := parseHistoryPeriod(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("parseHistoryPeriod(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}
