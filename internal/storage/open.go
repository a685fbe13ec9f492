package storage

import (
	"errors"
	"strings"

	"reportbot/pkg/logx"
)

// Open initializes the configured store. The "none" driver returns an
// in-memory store: usable, but schedules do not survive a restart.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none", "memory":
		log.Warn("storage disabled: dialog state and schedules will not survive a restart")
		return NewMemory(), nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
