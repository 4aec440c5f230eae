package cli

import (
	"fmt"
	"os"

	"github.com/kilupskalvis/doctrack/internal/config"
	"github.com/kilupskalvis/doctrack/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new doctrack workspace",
	Long: `Initialize a new doctrack workspace in the current directory.
This creates a .doctrack directory holding the configuration and the database.`,
	Run: runInit,
}

var initLockBackend string

func init() {
	initCmd.Flags().StringVar(&initLockBackend, "lock-backend", store.LockBackendBolt, "Lock table backend (bolt, sqlite)")
}

func runInit(cmd *cobra.Command, args []string) {
	// Check if already initialized
	if _, err := config.FindRoot(); err == nil {
		exitError("doctrack workspace already exists")
	}

	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	cfg, err := config.Initialize(cwd)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	if initLockBackend != cfg.LockBackend {
		cfg.LockBackend = initLockBackend
		if err := cfg.Save(); err != nil {
			exitError("failed to save config: %v", err)
		}
	}

	// Initialize store
	st, err := store.Open(cfg.DatabasePath(), cfg.LockBackend, cfg.LockDatabasePath())
	if err != nil {
		os.RemoveAll(cfg.Path())
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	fmt.Printf("Initialized empty doctrack workspace in %s/\n", config.DoctrackDir)
	fmt.Printf("Lock backend: %s\n", cfg.LockBackend)
}
