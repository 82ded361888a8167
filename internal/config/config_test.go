package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"EVOHOME_USERNAME", "EVOHOME_PASSWORD",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "MQTT_BROKER"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Evohome.PollIntervalSeconds != 300 {
		t.Errorf("PollIntervalSeconds = %d, want 300", cfg.Evohome.PollIntervalSeconds)
	}
	if cfg.Alerts.CooldownSeconds != 1800 {
		t.Errorf("CooldownSeconds = %d, want 1800", cfg.Alerts.CooldownSeconds)
	}
	if cfg.Alerts.QuietHoursEnabled {
		t.Error("quiet hours should be disabled by default")
	}
	if cfg.Alerts.QuietHoursStart != 23 || cfg.Alerts.QuietHoursEnd != 7 {
		t.Errorf("quiet hours = %d-%d, want 23-7", cfg.Alerts.QuietHoursStart, cfg.Alerts.QuietHoursEnd)
	}
	if len(cfg.Alerts.SuspiciousTemps) != 2 || cfg.Alerts.SuspiciousTemps[0] != 35.0 {
		t.Errorf("SuspiciousTemps = %v", cfg.Alerts.SuspiciousTemps)
	}
	if cfg.Detector.PreDropWindowMins != 15 || cfg.Detector.StuckThreshold != 0.5 {
		t.Errorf("Detector = %+v", cfg.Detector)
	}
	if cfg.Storage.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", cfg.Storage.RetentionDays)
	}
	if cfg.PollInterval() != 5*time.Minute {
		t.Errorf("PollInterval = %v, want 5m", cfg.PollInterval())
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
evohome:
  username: user@example.com
  password: hunter2
  poll_interval_seconds: 600
telegram:
  enabled: false
alerts:
  alert_on_all_overrides: false
  cooldown_seconds: 900
  quiet_hours_enabled: true
storage:
  database_path: /var/lib/evohome/forensics.db
mqtt:
  broker: tcp://localhost:1883
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Evohome.Username != "user@example.com" {
		t.Errorf("Username = %q", cfg.Evohome.Username)
	}
	if cfg.Evohome.PollIntervalSeconds != 600 {
		t.Errorf("PollIntervalSeconds = %d, want 600", cfg.Evohome.PollIntervalSeconds)
	}
	if cfg.Alerts.AlertOnAllOverrides {
		t.Error("AlertOnAllOverrides should be false")
	}
	if cfg.Cooldown() != 15*time.Minute {
		t.Errorf("Cooldown = %v, want 15m", cfg.Cooldown())
	}
	if !cfg.Alerts.QuietHoursEnabled {
		t.Error("QuietHoursEnabled should be true")
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	// Unset sections keep defaults.
	if cfg.Storage.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want default 90", cfg.Storage.RetentionDays)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
evohome:
  username: file-user
  password: file-pass
telegram:
  enabled: true
  bot_token: file-token
  chat_id: file-chat
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EVOHOME_USERNAME", "env-user")
	t.Setenv("EVOHOME_PASSWORD", "env-pass")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Evohome.Username != "env-user" || cfg.Evohome.Password != "env-pass" {
		t.Errorf("credentials = %s/%s, env should win", cfg.Evohome.Username, cfg.Evohome.Password)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("BotToken = %q, env should win", cfg.Telegram.BotToken)
	}
	// Empty env vars do not clobber file values.
	if cfg.Telegram.ChatID != "file-chat" {
		t.Errorf("ChatID = %q, want file-chat", cfg.Telegram.ChatID)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("Broker = %q", cfg.MQTT.Broker)
	}
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Evohome.Username = "u"
	base.Evohome.Password = "p"
	base.Telegram.Enabled = false

	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing credentials", func(c *Config) { c.Evohome.Username = "" }},
		{"poll interval too low", func(c *Config) { c.Evohome.PollIntervalSeconds = 30 }},
		{"telegram enabled without token", func(c *Config) { c.Telegram.Enabled = true }},
		{"quiet hours out of range", func(c *Config) { c.Alerts.QuietHoursStart = 24 }},
		{"missing database path", func(c *Config) { c.Storage.DatabasePath = "" }},
		{"zero retention", func(c *Config) { c.Storage.RetentionDays = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
