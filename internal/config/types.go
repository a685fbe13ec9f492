package config

// Config is the root of the bot configuration file (YAML or JSON).
// Unknown fields are rejected so typos fail loudly at load/reload.
type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Logging     LoggingConfig     `json:"logging"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
	Storage     StorageConfig     `json:"storage"`
	Reports     ReportsConfig     `json:"reports"`
	Maintenance MaintenanceConfig `json:"maintenance"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	PollTimeout string `json:"poll_timeout"` // duration, default 10s
	GroupLog    string `json:"group_log"`    // chat id for the telegram log sink
}

type LoggingConfig struct {
	Level    string             `json:"level"`
	Console  bool               `json:"console"`
	File     LogFileConfig      `json:"file"`
	Telegram LogTelegramConfig  `json:"telegram"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LogTelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type SchedulerConfig struct {
	Tick    string `json:"tick"`    // duration between pending passes, default 30s
	Workers int    `json:"workers"` // delivery workers, default 2
}

type StorageConfig struct {
	Driver      string `json:"driver"` // none | file | sqlite
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout"` // sqlite, duration
}

type ReportsConfig struct {
	HTTPTimeout string             `json:"http_timeout"` // duration, default 15s
	ChartsDir   string             `json:"charts_dir"`   // where fetched charts land, default os tmp
	Market      ReportEndpoint     `json:"market"`
	Lightning   ReportEndpoint     `json:"lightning"`
	Network     NetworkReportConfig `json:"network"`
}

type ReportEndpoint struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url"`
}

type NetworkReportConfig struct {
	Enabled bool `json:"enabled"`
}

type MaintenanceConfig struct {
	StaleDialogAfter string `json:"stale_dialog_after"` // duration, default 24h
	ResetSpec        string `json:"reset_spec"`         // cron, default "30 3 * * *"
	CompactSpec      string `json:"compact_spec"`       // cron, default "0 4 * * *"
}
