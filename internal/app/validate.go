package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"remindbot/internal/config"
)

// validateConfig rejects a reload before it is committed or published.
func validateConfig(cfg *config.Config) error {
	if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("scheduler.send_timeout", cfg.Scheduler.SendTimeout); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("scheduler.session_idle", cfg.Scheduler.SessionIdle); err != nil {
		return err
	}
	if cfg.Scheduler.RatePerSec < 0 {
		return config.FieldError("scheduler.rate_per_sec", "must be >= 0")
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	return nil
}

// changedSections compares top-level config sections by their JSON form.
// Good enough for reload logging; the structs are small.
func changedSections(old, cfg *config.Config) []string {
	if old == nil || cfg == nil {
		return nil
	}
	var out []string
	sections := []struct {
		name     string
		old, cur any
	}{
		{"telegram", old.Telegram, cfg.Telegram},
		{"logging", old.Logging, cfg.Logging},
		{"storage", old.Storage, cfg.Storage},
		{"scheduler", old.Scheduler, cfg.Scheduler},
	}
	for _, s := range sections {
		a, _ := json.Marshal(s.old)
		b, _ := json.Marshal(s.cur)
		if string(a) != string(b) {
			out = append(out, s.name)
		}
	}
	return out
}
