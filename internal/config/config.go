package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither the environment nor the config file sets a value.
const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 30 * time.Second
	DefaultDBPath  = "issuedesk.db"
)

// Environment variables consulted by Resolve.
const (
	EnvURL     = "ISSUEDESK_URL"
	EnvTimeout = "ISSUEDESK_TIMEOUT"
	EnvConfig  = "ISSUEDESK_CONFIG"
	EnvDB      = "ISSUEDESK_DB"
)

// Source records where a resolved value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// Config holds resolved client and store settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	DBPath     string
	ConfigPath string // config file consulted, whether or not it exists

	// Sources maps "base_url", "timeout" and "db_path" to their origin.
	Sources map[string]Source
}

// File is the on-disk YAML shape of the config file.
type File struct {
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	DBPath  string `yaml:"db_path,omitempty" json:"db_path,omitempty"`
}

// DefaultPath returns $ISSUEDESK_CONFIG if set, otherwise
// $XDG_CONFIG_HOME/issuedesk/config.yaml (via os.UserConfigDir).
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, "issuedesk", "config.yaml"), nil
}

// Load reads the config file at path. A missing file yields an empty File.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &f, nil
}

// Resolve returns the current configuration. The environment wins over the
// config file, which wins over the built-in defaults.
func Resolve() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	f, err := Load(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		DBPath:     DefaultDBPath,
		ConfigPath: path,
		Sources: map[string]Source{
			"base_url": SourceDefault,
			"timeout":  SourceDefault,
			"db_path":  SourceDefault,
		},
	}

	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
		cfg.Sources["base_url"] = SourceFile
	}
	if f.Timeout != "" {
		d, err := parseTimeout(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Timeout = d
		cfg.Sources["timeout"] = SourceFile
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
		cfg.Sources["db_path"] = SourceFile
	}

	if v := os.Getenv(EnvURL); v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = SourceEnv
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
		cfg.Sources["timeout"] = SourceEnv
	}
	if v := os.Getenv(EnvDB); v != "" {
		cfg.DBPath = v
		cfg.Sources["db_path"] = SourceEnv
	}

	return cfg, nil
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid timeout %q: must be positive", s)
	}
	return d, nil
}

// Write stores f at path, creating parent directories as needed.
func Write(path string, f *File) error {
	if f.Timeout != "" {
		if _, err := parseTimeout(f.Timeout); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the config file at c.ConfigPath exists.
func (c *Config) Exists() (bool, error) {
	if _, err := os.Stat(c.ConfigPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
