package notify

import (
	"context"
	"errors"

	"reportbot/internal/schedule"
)

var (
	// ErrDuplicateCategory rejects a second live notification for the
	// same category within one chat. Registrations are never merged.
	ErrDuplicateCategory = errors.New("notify: category already scheduled for this chat")

	// ErrIndexOutOfRange rejects a removal index outside 1..len(list).
	ErrIndexOutOfRange = errors.New("notify: index out of range")
)

// Notification is one live recurring delivery owned by a single chat.
type Notification struct {
	Category   string
	Recurrence schedule.Recurrence
	HumanView  string
	Handle     schedule.Handle
}

// Saved is the persistence shape of a notification: everything except
// the runtime job handle, which is rebuilt on restore.
type Saved struct {
	Category   string              `json:"category"`
	Recurrence schedule.Recurrence `json:"recurrence"`
	HumanView  string              `json:"human_view"`
}

// DeliverFunc produces and delivers one snapshot for (chatID, category).
// The scheduler invokes it on every fire of the backing job.
type DeliverFunc func(ctx context.Context, chatID int64, category string) error
