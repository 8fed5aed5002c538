package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type TelegramConfig struct {
	// Token may be left empty; the BOT_TOKEN environment variable is then
	// used instead (typically via a .env file).
	Token       string `json:"token,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"` // Go duration string; default "10s"
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"` // TRACE..ERROR; default INFO
	Console bool       `json:"console"`
	File    FileConfig `json:"file"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path,omitempty"`         // default "./remindbot.db"
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// SchedulerConfig controls the reminder delivery engine.
//
// All durations are Go duration strings (e.g. "500ms", "10s").
type SchedulerConfig struct {
	// Timezone is the single IANA zone reminders are interpreted in,
	// e.g. "Asia/Jakarta". Empty means the host's local zone.
	Timezone    string `json:"timezone,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"` // per-notification bound; default "10s"
	RatePerSec  int    `json:"rate_per_sec,omitempty"` // outbound send rate; default 3
	SessionIdle string `json:"session_idle,omitempty"` // conversation expiry; default "5m"
}
