// Package cli implements the command-line interface for doctrack.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kilupskalvis/doctrack/internal/config"
	"github.com/kilupskalvis/doctrack/internal/core"
	"github.com/kilupskalvis/doctrack/internal/store"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config   *config.Config
	Store    *store.Store
	Tracking *core.Context
	Logger   *slog.Logger
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext loads config, opens the store and creates a tracking context
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	level, format := cfg.LogLevel, cfg.LogFormat
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	logger := newLogger(os.Stderr, level, format)

	schemas, err := cfg.CollectionSchemas()
	if err != nil {
		exitError("invalid schema config: %v", err)
	}

	st, err := store.Open(cfg.DatabasePath(), cfg.LockBackend, cfg.LockDatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}

	tracking := core.NewContext(st, core.WithLogger(logger), core.WithSchemas(schemas))
	return &cmdContext{Config: cfg, Store: st, Tracking: tracking, Logger: logger}
}

// retryConfig converts the [retry] config section
func (c *cmdContext) retryConfig() *core.RetryConfig {
	initial, maxBackoff, err := c.Config.Retry.Backoff()
	if err != nil {
		exitError("invalid retry config: %v", err)
	}
	return &core.RetryConfig{
		MaxRetries:     c.Config.Retry.MaxRetries,
		InitialBackoff: initial,
		MaxBackoff:     maxBackoff,
		JitterFraction: c.Config.Retry.JitterFraction,
	}
}

// newLogger builds the slog handler for a level and format name
func newLogger(w io.Writer, levelName, format string) *slog.Logger {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:   "doctrack",
	Short: "Change-tracked document store",
	Long: `doctrack stores schemaless documents and writes edits back as minimal
field-level updates, guarded by cooperative field locks so concurrent
writers cannot silently overwrite each other.`,
}

var (
	logLevel  string
	logFormat string
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(locksCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
