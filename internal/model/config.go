package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Backend is "sqlite" or "postgres".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the sqlite database file (sqlite backend only).
	Path string `mapstructure:"path" yaml:"path"`

	// DSN is the Postgres connection string (postgres backend only).
	// A password placeholder of the form keyring:<key> is resolved
	// through the system keyring at load time.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// ActorConfig identifies the local user stamped onto mutations and
// history entries.
type ActorConfig struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
}

// DisplayConfig holds output preferences.
type DisplayConfig struct {
	Theme        string `mapstructure:"theme" yaml:"theme"`
	HistoryLimit int    `mapstructure:"history_limit" yaml:"history_limit"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Actor   ActorConfig   `mapstructure:"actor" yaml:"actor"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/boardsync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "boardsync", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join(home, ".config", "boardsync", "board.db"),
		},
		Actor: ActorConfig{
			ID:   "local",
			Name: "Local User",
		},
		Display: DisplayConfig{
			Theme:        "default",
			HistoryLimit: 200,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("actor.id", "local")
	v.SetDefault("actor.name", "Local User")
	v.SetDefault("display.theme", "default")
	v.SetDefault("display.history_limit", 200)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Store.Backend != "sqlite" && cfg.Store.Backend != "postgres" {
		return nil, fmt.Errorf("config %s: unknown store backend %q", path, cfg.Store.Backend)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("actor", cfg.Actor)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
