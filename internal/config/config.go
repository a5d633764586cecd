package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Supported queue backends.
const (
	BackendServiceBus = "servicebus"
	BackendSQS        = "sqs"
	BackendRedis      = "redis"
	BackendSQLite     = "sqlite"
)

// Dispatch contains timing for the single-shot command flow.
type Dispatch struct {
	// GracePeriodMS is how long the dispatcher waits for piped input.
	GracePeriodMS      int `toml:"grace_period_ms"`
	PeekTimeoutSeconds int `toml:"peek_timeout_seconds"`
}

// ServiceBus contains Azure Service Bus connection settings.
type ServiceBus struct {
	Namespace             string `toml:"namespace"`
	PolicyName            string `toml:"policy_name"`
	PolicyKey             string `toml:"policy_key"`
	Endpoint              string `toml:"endpoint"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// SQS contains Amazon SQS settings. Credentials come from the AWS default chain.
type SQS struct {
	Region      string `toml:"region"`
	Endpoint    string `toml:"endpoint"`
	QueueURL    string `toml:"queue_url"`
	WaitSeconds int    `toml:"wait_seconds"`
	LockSeconds int    `toml:"lock_seconds"`
}

// Redis contains settings for the Redis list backend.
type Redis struct {
	Addr        string `toml:"addr"`
	Password    string `toml:"password"`
	DB          int    `toml:"db"`
	KeyPrefix   string `toml:"key_prefix"`
	LockSeconds int    `toml:"lock_seconds"`
}

// SQLite contains settings for the local SQLite queue.
type SQLite struct {
	Path        string `toml:"path"`
	LockSeconds int    `toml:"lock_seconds"`
}

// Config encapsulates all configuration values for rustybus.
//
// Only the section matching Backend is validated; the others may be left
// empty.
type Config struct {
	Backend    string     `toml:"backend"`
	Dispatch   Dispatch   `toml:"dispatch"`
	ServiceBus ServiceBus `toml:"servicebus"`
	SQS        SQS        `toml:"sqs"`
	Redis      Redis      `toml:"redis"`
	SQLite     SQLite     `toml:"sqlite"`
}

// Option adjusts a Config after the file is decoded and before it is
// normalized, so overrides from flags win over file values.
type Option func(*Config)

// WithBackend forces the backend regardless of file or environment.
func WithBackend(name string) Option {
	return func(c *Config) {
		if name = strings.TrimSpace(name); name != "" {
			c.Backend = name
		}
	}
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; defaults and the environment are used instead.
func Load(path string, opts ...Option) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// GracePeriod returns how long to wait for piped input.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Dispatch.GracePeriodMS) * time.Millisecond
}

// PeekTimeout returns the wait budget for a peek-lock request.
func (c *Config) PeekTimeout() time.Duration {
	return time.Duration(c.Dispatch.PeekTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
