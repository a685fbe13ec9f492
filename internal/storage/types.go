package storage

import (
	"context"
	"time"
)

// Config configures chat-record persistence.
//
// Driver values:
//   - "none": in-memory only; all dialog state and schedules are lost
//     on restart (documented limitation, not an error)
//   - "file": JSON snapshot file with atomic replace
//   - "sqlite": SQLite database file (modernc, WAL)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// NotificationRecord is the durable shape of one registered
// notification. Kept flat and schema-stable; the runtime job handle is
// deliberately absent and is rebuilt on restore.
type NotificationRecord struct {
	Category  string `json:"category"`
	Unit      string `json:"unit"`
	Count     int    `json:"count"`
	TimeOfDay string `json:"time_of_day"`
	HumanView string `json:"human_view"`
}

// ChatRecord bundles everything the core persists per chat: the dialog
// position, its transient context, and the notification list.
type ChatRecord struct {
	State         string               `json:"state"`
	Category      string               `json:"category,omitempty"`
	Args          []string             `json:"args,omitempty"`
	Notifications []NotificationRecord `json:"notifications,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Store is the durable-for-process-lifetime key-value capability the
// core requires, keyed by chat id.
type Store interface {
	LoadChat(ctx context.Context, chatID int64) (ChatRecord, bool, error)
	SaveChat(ctx context.Context, chatID int64, rec ChatRecord) error
	DeleteChat(ctx context.Context, chatID int64) error
	ListChats(ctx context.Context) (map[int64]ChatRecord, error)

	// Compact reclaims space / rewrites the backing file. Best-effort,
	// driven by the maintenance cron.
	Compact(ctx context.Context) error
	Close() error
}
