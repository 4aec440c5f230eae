package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/kilupskalvis/doctrack/internal/store"
	"github.com/spf13/cobra"
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Inspect and release field locks",
	Long: `Field locks never expire. A writer that exits without releasing its locks
leaves them in place until they are released by owner with "locks release".`,
}

var locksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List held field locks",
	Args:  cobra.NoArgs,
	Run:   runLocksList,
}

var locksReleaseCmd = &cobra.Command{
	Use:   "release <owner>",
	Short: "Release every lock held by an owner",
	Args:  cobra.ExactArgs(1),
	Run:   runLocksRelease,
}

func init() {
	locksCmd.AddCommand(locksListCmd)
	locksCmd.AddCommand(locksReleaseCmd)
}

func runLocksList(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initContext()
	defer c.Close()

	locks, err := c.Store.Locks().List(bgCtx)
	if err != nil {
		exitError("failed to list locks: %v", err)
	}
	if len(locks) == 0 {
		fmt.Println("No locks held")
		return
	}

	yellow := color.New(color.FgYellow)
	now := time.Now()
	for _, l := range locks {
		yellow.Printf("%s.%s", l.DocumentID, l.Field)
		fmt.Printf("  owner %s  held %s\n", l.TakenBy, now.Sub(l.TakenAt).Round(time.Second))
	}
}

func runLocksRelease(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initContext()
	defer c.Close()

	n, err := c.Store.Locks().DeleteMany(bgCtx, store.LockFilter{Owner: args[0]})
	if err != nil {
		exitError("failed to release locks: %v", err)
	}
	fmt.Printf("Released %d locks held by %s\n", n, args[0])
}
