// Package config loads server configuration from an optional YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the planner server configuration.
type Config struct {
	Port     int      `yaml:"port"`
	Database Database `yaml:"database"`
	Sessions Sessions `yaml:"sessions"`
	Log      Log      `yaml:"log"`

	// Automation selects the remote automation endpoint. With no URL the
	// server runs the in-process collaborator over the SQLite store.
	Automation Automation `yaml:"automation"`

	// SchemaFile overrides the embedded entity definitions.
	SchemaFile string `yaml:"schemaFile"`
}

type Database struct {
	URL string `yaml:"url"`
}

type Automation struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
}

type Sessions struct {
	MaxAge          time.Duration `yaml:"maxAge"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:     8080,
		Database: Database{URL: "file:planner.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		Automation: Automation{
			Timeout: 60 * time.Second,
			RPS:     5,
			Burst:   5,
		},
		Sessions: Sessions{
			MaxAge:          12 * time.Hour,
			IdleTimeout:     2 * time.Hour,
			CleanupInterval: 5 * time.Minute,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file at the default location is not an error; an explicit path
// must exist.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if err := ApplyEnvOverrides(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies DATABASE_URL, PORT, AUTOMATION_URL,
// AUTOMATION_TIMEOUT, AUTOMATION_RPS and LOG_LEVEL.
func ApplyEnvOverrides(cfg *Config, getenv func(string) string) error {
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = p
	}
	if v := getenv("AUTOMATION_URL"); v != "" {
		cfg.Automation.URL = v
	}
	if v := getenv("AUTOMATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUTOMATION_TIMEOUT: %w", err)
		}
		cfg.Automation.Timeout = d
	}
	if v := getenv("AUTOMATION_RPS"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AUTOMATION_RPS: %w", err)
		}
		cfg.Automation.RPS = r
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}
