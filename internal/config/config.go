// Package config loads monitor configuration from an optional YAML file
// with environment overrides for credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EvohomeConfig holds cloud API settings.
type EvohomeConfig struct {
	Username            string `yaml:"username"`
	Password            string `yaml:"password"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	RequestTimeoutSecs  int    `yaml:"request_timeout_seconds"`
}

// TelegramConfig holds notification transport settings.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// AlertsConfig holds gating settings for notifications.
type AlertsConfig struct {
	AlertOnAllOverrides bool      `yaml:"alert_on_all_overrides"`
	SuspiciousTemps     []float64 `yaml:"suspicious_temps"`
	CooldownSeconds     int       `yaml:"cooldown_seconds"`
	QuietHoursEnabled   bool      `yaml:"quiet_hours_enabled"`
	QuietHoursStart     int       `yaml:"quiet_hours_start"`
	QuietHoursEnd       int       `yaml:"quiet_hours_end"`
	DashboardURL        string    `yaml:"dashboard_url"`
}

// DetectorConfig holds classification tuning.
type DetectorConfig struct {
	PreDropWindowMins int     `yaml:"pre_drop_window_mins"`
	StuckThreshold    float64 `yaml:"stuck_threshold"`
}

// StorageConfig holds forensic database settings.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// MQTTConfig holds event bridge settings. Empty broker disables MQTT.
type MQTTConfig struct {
	Broker string `yaml:"broker"`
}

// WebConfig holds dashboard server settings.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the full monitor configuration.
type Config struct {
	Evohome  EvohomeConfig  `yaml:"evohome"`
	Telegram TelegramConfig `yaml:"telegram"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Detector DetectorConfig `yaml:"detector"`
	Storage  StorageConfig  `yaml:"storage"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the built-in defaults. The vendor rate-limits aggressively,
// so the poll interval stays conservative.
func Default() Config {
	return Config{
		Evohome: EvohomeConfig{
			PollIntervalSeconds: 300,
			RequestTimeoutSecs:  30,
		},
		Telegram: TelegramConfig{Enabled: true},
		Alerts: AlertsConfig{
			AlertOnAllOverrides: true,
			SuspiciousTemps:     []float64{35.0, 5.0},
			CooldownSeconds:     1800,
			QuietHoursEnabled:   false,
			QuietHoursStart:     23,
			QuietHoursEnd:       7,
		},
		Detector: DetectorConfig{
			PreDropWindowMins: 15,
			StuckThreshold:    0.5,
		},
		Storage: StorageConfig{
			DatabasePath:  "data/evohome_forensics.db",
			RetentionDays: 90,
		},
		Web: WebConfig{Enabled: true, Listen: ":8080"},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the config file at path (optional; empty path skips the file),
// applies environment overrides for credentials, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides credentials from the environment. Env always wins so
// secrets can stay out of the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("EVOHOME_USERNAME"); v != "" {
		cfg.Evohome.Username = v
	}
	if v := os.Getenv("EVOHOME_PASSWORD"); v != "" {
		cfg.Evohome.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
}

// Validate checks the configuration for values the monitor cannot run with.
func (c Config) Validate() error {
	if c.Evohome.Username == "" || c.Evohome.Password == "" {
		return errors.New("evohome credentials required (config file or EVOHOME_USERNAME/EVOHOME_PASSWORD)")
	}
	if c.Evohome.PollIntervalSeconds < 60 {
		return fmt.Errorf("poll interval %ds too low, minimum 60s", c.Evohome.PollIntervalSeconds)
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return errors.New("telegram enabled but bot_token or chat_id missing")
	}
	if c.Alerts.QuietHoursStart < 0 || c.Alerts.QuietHoursStart > 23 ||
		c.Alerts.QuietHoursEnd < 0 || c.Alerts.QuietHoursEnd > 23 {
		return errors.New("quiet hours must be in 0-23")
	}
	if c.Storage.DatabasePath == "" {
		return errors.New("storage database_path required")
	}
	if c.Storage.RetentionDays <= 0 {
		return errors.New("storage retention_days must be positive")
	}
	return nil
}

// PollInterval returns the poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Evohome.PollIntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Evohome.RequestTimeoutSecs) * time.Second
}

// Cooldown returns the alert cooldown as a duration.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.Alerts.CooldownSeconds) * time.Second
}
