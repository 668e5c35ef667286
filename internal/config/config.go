// Package config loads NeuroPathX settings from a YAML file, the environment
// and built-in defaults, in increasing order of precedence: defaults, file,
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfig          = "NEUROPATHX_CONFIG"
	EnvAPIURL          = "NEUROPATHX_API_URL"
	EnvEnvironment     = "NEUROPATHX_ENV"
	EnvStateDir        = "NEUROPATHX_STATE_DIR"
	EnvHistory         = "NEUROPATHX_HISTORY"
	EnvSamplesManifest = "NEUROPATHX_SAMPLES_MANIFEST"
	EnvSamplesRoot     = "NEUROPATHX_SAMPLES_ROOT"
	EnvLogLevel        = "LOG_LEVEL"

	xdgStateHomeEnv = "XDG_STATE_HOME"
	appName         = "neuropathx"
)

// Known deployments of the classification service
const (
	LocalURL      = "http://127.0.0.1:8000"
	ProductionURL = "https://yassientawfikk-neuropathx-backend.hf.space"
)

// Config is the application configuration
type Config struct {
	API struct {
		// BaseURL wins over Environment when set
		BaseURL        string        `yaml:"baseURL"`
		Environment    string        `yaml:"environment"`
		RequestTimeout time.Duration `yaml:"requestTimeout"`
		SlowStartAfter time.Duration `yaml:"slowStartAfter"`
	} `yaml:"api"`

	Server struct {
		// SessionIdle is how long an unused browser session is kept; 0 keeps
		// sessions forever
		SessionIdle time.Duration `yaml:"sessionIdle"`
	} `yaml:"server"`

	Samples struct {
		// Manifest is a YAML tree; empty uses the built-in one
		Manifest string `yaml:"manifest"`
		// Root is a directory or an http(s) base URL
		Root         string        `yaml:"root"`
		FetchTimeout time.Duration `yaml:"fetchTimeout"`
	} `yaml:"samples"`

	Catalog struct {
		// Path overrides the built-in clinical catalog
		Path string `yaml:"path"`
	} `yaml:"catalog"`

	State struct {
		Dir string `yaml:"dir"`
	} `yaml:"state"`

	History struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"history"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.API.Environment = "production"
	cfg.API.RequestTimeout = 120 * time.Second
	cfg.API.SlowStartAfter = 3 * time.Second

	cfg.Server.SessionIdle = 30 * time.Minute

	cfg.Samples.Root = "samples"
	cfg.Samples.FetchTimeout = 30 * time.Second

	cfg.History.Enabled = true

	cfg.Log.Level = "info"

	return cfg
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("Config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.API.BaseURL, EnvAPIURL)
	set(&c.API.Environment, EnvEnvironment)
	set(&c.State.Dir, EnvStateDir)
	set(&c.History.Path, EnvHistory)
	set(&c.Samples.Manifest, EnvSamplesManifest)
	set(&c.Samples.Root, EnvSamplesRoot)
	set(&c.Log.Level, EnvLogLevel)
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		switch c.API.Environment {
		case "local", "production":
		default:
			return fmt.Errorf("unknown api environment %q (expected local or production)", c.API.Environment)
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.API.RequestTimeout < 0 || c.API.SlowStartAfter < 0 || c.Samples.FetchTimeout < 0 || c.Server.SessionIdle < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// BaseURL resolves the classification service URL.
func (c *Config) BaseURL() string {
	if c.API.BaseURL != "" {
		return strings.TrimRight(c.API.BaseURL, "/")
	}
	if c.API.Environment == "local" {
		return LocalURL
	}
	return ProductionURL
}

// StateDir resolves where session state is kept:
//  1. state.dir / NEUROPATHX_STATE_DIR
//  2. XDG_STATE_HOME/neuropathx
//  3. os.UserConfigDir()/neuropathx
func (c *Config) StateDir() (string, error) {
	if c.State.Dir != "" {
		return filepath.Abs(c.State.Dir)
	}
	if xdg := strings.TrimSpace(os.Getenv(xdgStateHomeEnv)); xdg != "" {
		root, err := filepath.Abs(xdg)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", xdgStateHomeEnv, err)
		}
		return filepath.Join(root, appName), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(configDir, appName), nil
}

// HistoryPath is the diagnosis journal file, under the state dir unless set.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := c.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.parquet"), nil
}

// ParseLevel maps debug|info|warn|error onto slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}
