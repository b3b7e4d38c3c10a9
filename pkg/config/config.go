// Package config handles loading and managing novareport configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for novareport.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Payment PaymentConfig `yaml:"payment"`
	Output  OutputConfig  `yaml:"output"`
	Archive ArchiveConfig `yaml:"archive"`
	Session SessionConfig `yaml:"session"`
}

// APIConfig controls how the backend is reached.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PaymentConfig controls payment status polling.
type PaymentConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `yaml:"format"` // text, json or html
	Width  int    `yaml:"width"`
}

// ArchiveConfig selects the report archive backend.
//
// WARNING: AccessKey and SecretKey are secrets and should be provided
// through the environment rather than the config file.
type ArchiveConfig struct {
	Backend   string `yaml:"backend"` // local, s3 or gcs
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // custom S3 endpoint, e.g. MinIO
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// SessionConfig controls where the bearer token is persisted.
type SessionConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 15 * time.Second,
		},
		Payment: PaymentConfig{
			PollInterval: 5 * time.Second,
			MaxAttempts:  120,
		},
		Output: OutputConfig{
			Format: "text",
			Width:  80,
		},
		Archive: ArchiveConfig{
			Backend: "local",
			Dir:     filepath.Join(CacheDir(), "archive"),
		},
		Session: SessionConfig{
			Path: filepath.Join(ConfigDir(), "session.json"),
		},
	}
}

// Load reads a config file from the given path and applies NOVAREPORT_*
// environment overrides on top.
// If the file does not exist, the defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if c.Payment.PollInterval <= 0 {
		return fmt.Errorf("payment.poll_interval must be positive, got %s", c.Payment.PollInterval)
	}
	if c.Payment.MaxAttempts < 1 {
		return fmt.Errorf("payment.max_attempts must be at least 1, got %d", c.Payment.MaxAttempts)
	}
	switch c.Output.Format {
	case "text", "json", "html":
	default:
		return fmt.Errorf("output.format must be text, json or html, got %q", c.Output.Format)
	}
	switch c.Archive.Backend {
	case "local", "s3", "gcs":
	default:
		return fmt.Errorf("archive.backend must be local, s3 or gcs, got %q", c.Archive.Backend)
	}
	return nil
}

// envBindings maps config keys to the environment variables that can
// provide them. The first name is preferred; later names are fallbacks.
var envBindings = map[string][]string{
	"api.base_url":          {"NOVAREPORT_API_URL"},
	"api.timeout":           {"NOVAREPORT_API_TIMEOUT"},
	"payment.poll_interval": {"NOVAREPORT_POLL_INTERVAL"},
	"payment.max_attempts":  {"NOVAREPORT_MAX_ATTEMPTS"},
	"output.format":         {"NOVAREPORT_OUTPUT"},
	"archive.backend":       {"NOVAREPORT_ARCHIVE_BACKEND", "STORAGE_BACKEND"},
	"archive.dir":           {"NOVAREPORT_ARCHIVE_DIR"},
	"archive.bucket":        {"NOVAREPORT_ARCHIVE_BUCKET", "STORAGE_BUCKET"},
	"archive.region":        {"NOVAREPORT_ARCHIVE_REGION", "AWS_REGION"},
	"archive.endpoint":      {"NOVAREPORT_ARCHIVE_ENDPOINT", "S3_ENDPOINT"},
	"archive.access_key":    {"NOVAREPORT_ARCHIVE_ACCESS_KEY", "AWS_ACCESS_KEY_ID"},
	"archive.secret_key":    {"NOVAREPORT_ARCHIVE_SECRET_KEY", "AWS_SECRET_ACCESS_KEY"},
	"session.path":          {"NOVAREPORT_SESSION_FILE"},
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)
		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}
	return nil
}

// applyEnv overwrites cfg fields whose environment variable is set.
func applyEnv(cfg *Config) error {
	v := viper.New()
	if err := bindEnvs(v); err != nil {
		return err
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setDuration := func(key string, dst *time.Duration) error {
		if !v.IsSet(key) {
			return nil
		}
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("api.base_url", &cfg.API.BaseURL)
	if err := setDuration("api.timeout", &cfg.API.Timeout); err != nil {
		return err
	}
	if err := setDuration("payment.poll_interval", &cfg.Payment.PollInterval); err != nil {
		return err
	}
	if v.IsSet("payment.max_attempts") {
		cfg.Payment.MaxAttempts = v.GetInt("payment.max_attempts")
	}
	setString("output.format", &cfg.Output.Format)
	setString("archive.backend", &cfg.Archive.Backend)
	setString("archive.dir", &cfg.Archive.Dir)
	setString("archive.bucket", &cfg.Archive.Bucket)
	setString("archive.region", &cfg.Archive.Region)
	setString("archive.endpoint", &cfg.Archive.Endpoint)
	setString("archive.access_key", &cfg.Archive.AccessKey)
	setString("archive.secret_key", &cfg.Archive.SecretKey)
	setString("session.path", &cfg.Session.Path)
	return nil
}

// FindConfigFile looks for .novareport/config.yaml in the given directory
// and its parents, then falls back to the user config directory. It returns
// "" if no file exists.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".novareport", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	candidate := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// ConfigDir returns the per-user configuration directory,
// $XDG_CONFIG_HOME/novareport or ~/.config/novareport.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "novareport")
	}
	return filepath.Join(homeDir(), ".config", "novareport")
}

// CacheDir returns the per-user cache directory, ~/.cache/novareport.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "novareport")
	}
	return filepath.Join(homeDir(), ".cache", "novareport")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		return os.TempDir()
	}
	return home
}
