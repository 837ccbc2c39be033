package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultReconcileSpec = "0 3 * * *" // nightly, 03:00 local
	DefaultReminderSpec  = "0 8 * * *" // morning deadline sweep
	DefaultMaxPerDay     = 0           // no per-day cap
)

type Config struct {
	Store    StoreConfig    `json:"store"`
	Jobs     JobsConfig     `json:"jobs"`
	Planner  PlannerConfig  `json:"planner"`
	Channels ChannelsConfig `json:"channels"`
}

type StoreConfig struct {
	DBPath string `json:"dbPath"`
}

type JobsConfig struct {
	ReconcileSpec string `json:"reconcileSpec"`
	ReminderSpec  string `json:"reminderSpec"`
	StatePath     string `json:"statePath"`
}

type PlannerConfig struct {
	MaxPerDay int `json:"maxPerDay"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
}

func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DBPath: filepath.Join(ConfigDir(), "dayflow.db"),
		},
		Jobs: JobsConfig{
			ReconcileSpec: DefaultReconcileSpec,
			ReminderSpec:  DefaultReminderSpec,
			StatePath:     filepath.Join(ConfigDir(), "jobs.json"),
		},
		Planner: PlannerConfig{
			MaxPerDay: DefaultMaxPerDay,
		},
		Channels: ChannelsConfig{},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".dayflow")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if dbPath := os.Getenv("DAYFLOW_DB"); dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if spec := os.Getenv("DAYFLOW_RECONCILE_SPEC"); spec != "" {
		cfg.Jobs.ReconcileSpec = spec
	}
	if spec := os.Getenv("DAYFLOW_REMINDER_SPEC"); spec != "" {
		cfg.Jobs.ReminderSpec = spec
	}
	if maxPerDay := os.Getenv("DAYFLOW_MAX_PER_DAY"); maxPerDay != "" {
		if parsed, err := strconv.Atoi(maxPerDay); err == nil {
			cfg.Planner.MaxPerDay = parsed
		}
	}
	if token := os.Getenv("DAYFLOW_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
		cfg.Channels.Telegram.Enabled = true
	}

	return cfg, nil
}

// SaveConfig writes the config to its default path, creating the
// directory on first use.
func SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
