// Package config loads the waymark configuration file and applies
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "waymark.yml"

// DefaultSampleInterval matches the recorder default.
const DefaultSampleInterval = time.Second

// ErrRemoteNotConfigured is returned by Remote.Require when a command
// needs the backend but no URL/key is configured.
var ErrRemoteNotConfigured = errors.New("remote backend not configured (set remote.url and remote.api_key, or WAYMARK_URL and WAYMARK_API_KEY)")

// Config is the application configuration.
type Config struct {
	Remote   Remote   `yaml:"remote"`
	Recorder Recorder `yaml:"recorder"`
	Database Database `yaml:"database"`
}

// Remote locates the hosted backend. Optional: commands that only touch
// the local store run without it.
type Remote struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	APIKey string `yaml:"api_key"`
}

// Recorder holds recording session settings.
type Recorder struct {
	// SampleInterval is a Go duration string ("1s", "500ms").
	SampleInterval string `yaml:"sample_interval"`
}

// Database locates the local SQLite store.
type Database struct {
	Path string `yaml:"path"`
}

// Require returns ErrRemoteNotConfigured unless both URL and API key
// are present.
func (r Remote) Require() error {
	if r.URL == "" || r.APIKey == "" {
		return ErrRemoteNotConfigured
	}
	return nil
}

// Interval parses the sample interval, falling back to the default for
// an empty value.
func (r Recorder) Interval() (time.Duration, error) {
	if r.SampleInterval == "" {
		return DefaultSampleInterval, nil
	}
	d, err := time.ParseDuration(r.SampleInterval)
	if err != nil {
		return 0, fmt.Errorf("recorder.sample_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("recorder.sample_interval must be positive, got %s", d)
	}
	return d, nil
}

// Load reads the configuration from path, validates it, and applies
// defaults and environment overrides.
//
// A missing file is not an error when path is the default - the
// configuration then comes from defaults and the environment. An
// explicitly named file must exist.
//
// Environment overrides: WAYMARK_URL, WAYMARK_API_KEY, WAYMARK_DB.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults + environment only.
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if v := os.Getenv("WAYMARK_URL"); v != "" {
		cfg.Remote.URL = v
	}
	if v := os.Getenv("WAYMARK_API_KEY"); v != "" {
		cfg.Remote.APIKey = v
	}
	if v := os.Getenv("WAYMARK_DB"); v != "" {
		cfg.Database.Path = v
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "waymark.db"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Recorder.Interval(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
