package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Console ConsoleConfig `koanf:"console"`
	Dev     DevConfig     `koanf:"dev"`
	Log     LogConfig     `koanf:"log"`
}

// ConsoleConfig points the client commands at a backend and sets paging.
type ConsoleConfig struct {
	BaseURL      string `koanf:"base_url"`
	APIKey       string `koanf:"api_key"`
	PageLimit    int    `koanf:"page_limit"`
	TimelineDays int    `koanf:"timeline_days"`
}

// DevConfig configures the local fixture backend run by `console serve`.
type DevConfig struct {
	Addr     string        `koanf:"addr"`
	Storage  StorageConfig `koanf:"storage"`
	Seed     bool          `koanf:"seed"`
	Simulate bool          `koanf:"simulate"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load from config.yaml file first
	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider("CONSOLE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "CONSOLE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("console.base_url") {
		k.Set("console.base_url", "http://localhost:8640")
	}
	if !k.Exists("console.page_limit") {
		k.Set("console.page_limit", 40)
	}
	if !k.Exists("console.timeline_days") {
		k.Set("console.timeline_days", 30)
	}
	if !k.Exists("dev.addr") {
		k.Set("dev.addr", ":8640")
	}
	if !k.Exists("dev.storage.type") {
		k.Set("dev.storage.type", "memory")
	}
	if !k.Exists("dev.storage.sqlite.path") {
		k.Set("dev.storage.sqlite.path", "console-dev.db")
	}
	if !k.Exists("log.level") {
		k.Set("log.level", "info")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in the API key
	cfg.Console.APIKey = substituteEnvVars(cfg.Console.APIKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
