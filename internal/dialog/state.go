package dialog

import "time"

// State is a chat's position in a guided flow. Idle is both the initial
// and the terminal state of every flow; each chat owns exactly one
// State at a time.
type State string

const (
	StateIdle State = "idle"

	StateExploreCategory State = "explore_category"
	StateExploreTarget   State = "explore_target"

	StateHistoryCategory State = "history_category"
	StateHistoryPeriod   State = "history_period"

	StateNotifyCategory      State = "notify_category"
	StateNotifyPeriod        State = "notify_period"
	StateManageNotifications State = "manage_notifications"
)

func parseState(s string) State {
	switch State(s) {
	case StateExploreCategory, StateExploreTarget,
		StateHistoryCategory, StateHistoryPeriod,
		StateNotifyCategory, StateNotifyPeriod, StateManageNotifications:
		return State(s)
	default:
		return StateIdle
	}
}

// session is one chat's dialog position plus its scratch data. The
// scratch (selected category) is only meaningful while state != idle
// and is cleared on every transition back to idle.
type session struct {
	state     State
	category  string
	updatedAt time.Time
}

func idleSession(now time.Time) session {
	return session{state: StateIdle, updatedAt: now}
}
