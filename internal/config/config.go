// Package config manages doctrack configuration and the .doctrack directory.
// It handles loading, saving, and initializing the workspace configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/pelletier/go-toml/v2"
)

const (
	DoctrackDir      = ".doctrack"
	ConfigFile       = "config"
	DatabaseFile     = "doctrack.db"
	LockDatabaseFile = "locks.db"
)

// Config represents the doctrack configuration
type Config struct {
	DatabaseFile string `toml:"database_file"`
	LockBackend  string `toml:"lock_backend"` // "bolt" or "sqlite"
	LockDatabase string `toml:"lock_database,omitempty"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"` // "text" or "json"

	Retry   RetryConfig                  `toml:"retry"`
	Schemas map[string]map[string]string `toml:"schemas,omitempty"`

	path string // path to .doctrack directory
}

// RetryConfig controls retries of submits that lost lock contention
type RetryConfig struct {
	MaxRetries     int     `toml:"max_retries"`
	InitialBackoff string  `toml:"initial_backoff"`
	MaxBackoff     string  `toml:"max_backoff"`
	JitterFraction float64 `toml:"jitter_fraction"`
}

// Default returns the configuration written by Initialize
func Default() *Config {
	return &Config{
		DatabaseFile: DatabaseFile,
		LockBackend:  "bolt",
		LogLevel:     "info",
		LogFormat:    "text",
		Retry: RetryConfig{
			MaxRetries:     3,
			InitialBackoff: "100ms",
			MaxBackoff:     "5s",
			JitterFraction: 0.25,
		},
	}
}

// FindRoot finds the .doctrack directory by walking up from current directory
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindRootFrom(dir)
}

// FindRootFrom finds the .doctrack directory by walking up from dir
func FindRootFrom(dir string) (string, error) {
	for {
		path := filepath.Join(dir, DoctrackDir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a doctrack workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .doctrack directory
func Load() (*Config, error) {
	path, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from the given .doctrack directory
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(path, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = path
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Path returns the path to the .doctrack directory
func (c *Config) Path() string {
	return c.path
}

// DatabasePath returns the path to the bbolt database
func (c *Config) DatabasePath() string {
	return c.resolve(c.DatabaseFile, DatabaseFile)
}

// LockDatabasePath returns the path to the SQLite lock database
func (c *Config) LockDatabasePath() string {
	return c.resolve(c.LockDatabase, LockDatabaseFile)
}

func (c *Config) resolve(file, fallback string) string {
	if file == "" {
		file = fallback
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.path, file)
}

// CollectionSchemas parses the [schemas.<collection>] tables
func (c *Config) CollectionSchemas() (map[string]*models.CollectionSchema, error) {
	names := make([]string, 0, len(c.Schemas))
	for name := range c.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]*models.CollectionSchema, len(names))
	for _, name := range names {
		schema, err := models.ParseSchema(name, c.Schemas[name])
		if err != nil {
			return nil, err
		}
		out[name] = schema
	}
	return out, nil
}

// Backoff returns the parsed retry durations
func (r RetryConfig) Backoff() (initial, maxBackoff time.Duration, err error) {
	if initial, err = parseDuration(r.InitialBackoff, 100*time.Millisecond); err != nil {
		return 0, 0, fmt.Errorf("retry.initial_backoff: %w", err)
	}
	if maxBackoff, err = parseDuration(r.MaxBackoff, 5*time.Second); err != nil {
		return 0, 0, fmt.Errorf("retry.max_backoff: %w", err)
	}
	return initial, maxBackoff, nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

// Initialize creates a new .doctrack directory in dir with default configuration
func Initialize(dir string) (*Config, error) {
	path := filepath.Join(dir, DoctrackDir)

	// Check if already initialized
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("doctrack workspace already exists")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", DoctrackDir, err)
	}

	cfg := Default()
	cfg.path = path

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(path)
		return nil, err
	}

	return cfg, nil
}
