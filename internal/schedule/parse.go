package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse errors. Callers match with errors.Is to pick a user-facing
// re-prompt message; the wrapped text carries the offending token.
var (
	ErrInvalidNumber = errors.New("recurrence: count must be a positive integer")
	ErrInvalidUnit   = errors.New("recurrence: unit must be hours or days")
	ErrInvalidTime   = errors.New("recurrence: invalid time of day")
)

// DefaultTimeOfDay is used when a cadence omits the HH:MM token.
const DefaultTimeOfDay = "12:00"

// ParseRecurrence parses whitespace-split cadence tokens:
//
//	["3", "hours"]           -> every 3 hours at 12:00 UTC
//	["1", "day", "09:30"]    -> every day at 09:30 UTC
//
// Accepted unit spellings (case-insensitive): h, hour, hours, d, day, days.
// Tokens past the third are ignored.
func ParseRecurrence(tokens []string) (Recurrence, error) {
	if len(tokens) < 2 {
		return Recurrence{}, fmt.Errorf("%w: want \"<count> <hours|days> [HH:MM]\"", ErrInvalidNumber)
	}

	count, err := strconv.Atoi(strings.TrimSpace(tokens[0]))
	if err != nil || count < 1 {
		return Recurrence{}, fmt.Errorf("%w: %q", ErrInvalidNumber, tokens[0])
	}

	var unit Unit
	switch strings.ToLower(strings.TrimSpace(tokens[1])) {
	case "h", "hour", "hours":
		unit = UnitHour
	case "d", "day", "days":
		unit = UnitDay
	default:
		return Recurrence{}, fmt.Errorf("%w: %q", ErrInvalidUnit, tokens[1])
	}

	tod := DefaultTimeOfDay
	if len(tokens) >= 3 {
		h, m, err := ParseHHMM(tokens[2])
		if err != nil {
			return Recurrence{}, err
		}
		tod = fmt.Sprintf("%02d:%02d", h, m)
	}

	return Recurrence{Unit: unit, Count: count, TimeOfDay: tod}, nil
}
