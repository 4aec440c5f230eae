package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/doctrack/internal/core"
	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <collection> [json|-]",
	Short: "Insert a document",
	Long: `Insert a JSON document into a collection. The document is read from the
argument, or from stdin when it is "-" or omitted. A document without an
_id gets a generated one.`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runPut,
}

func runPut(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initContext()
	defer c.Close()

	data, err := readInput(args[1:])
	if err != nil {
		exitError("failed to read document: %v", err)
	}
	doc, err := parseDocument(data)
	if err != nil {
		exitError("invalid document: %v", err)
	}

	coll := documentsIn(c, args[0])
	if err := coll.InsertOnSubmit(doc); err != nil {
		exitError("%v", err)
	}

	result, err := core.SubmitWithRetry(bgCtx, c.Tracking, c.retryConfig())
	if err != nil {
		exitError("failed to insert: %v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("+ %s/%s\n", coll.Name(), doc.ID())
	fmt.Printf("%d inserted\n", result.Inserted)
}

// readInput returns the first argument, or stdin when absent or "-"
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return []byte(args[0]), nil
}

// documentsIn opens a raw document collection or exits
func documentsIn(c *cmdContext, name string) *core.Collection[*models.Document] {
	coll, err := core.Documents(c.Tracking, name)
	if err != nil {
		exitError("%v", err)
	}
	return coll
}
