package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/doctrack/internal/core"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <collection> <id>...",
	Short: "Delete documents",
	Args:  cobra.MinimumNArgs(2),
	Run:   runRm,
}

func runRm(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initContext()
	defer c.Close()

	coll := documentsIn(c, args[0])
	for _, id := range args[1:] {
		doc, err := coll.FindByID(bgCtx, id)
		if err != nil {
			exitError("%v", err)
		}
		if err := coll.DeleteOnSubmit(doc); err != nil {
			exitError("%v", err)
		}
	}

	result, err := core.SubmitWithRetry(bgCtx, c.Tracking, c.retryConfig())
	if err != nil {
		exitError("failed to delete: %v", err)
	}

	red := color.New(color.FgRed)
	for _, id := range args[1:] {
		red.Printf("- %s/%s\n", args[0], id)
	}
	fmt.Printf("%d deleted\n", result.Deleted)
}
