package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilupskalvis/doctrack/internal/store"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <collection> [id]",
	Short: "Show documents",
	Long:  `Show one document by id, or every document of the collection.`,
	Args:  cobra.RangeArgs(1, 2),
	Run:   runGet,
}

var getIDsOnly bool

func init() {
	getCmd.Flags().BoolVar(&getIDsOnly, "ids", false, "Print document ids only")
}

func runGet(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initContext()
	defer c.Close()

	coll := documentsIn(c, args[0])

	if len(args) == 2 {
		doc, err := coll.FindByID(bgCtx, args[1])
		if errors.Is(err, store.ErrNotFound) {
			exitError("document %s not found in %s", args[1], args[0])
		}
		if err != nil {
			exitError("%v", err)
		}
		fmt.Println(formatJSON(doc))
		return
	}

	docs, err := coll.Find(bgCtx, nil)
	if err != nil {
		exitError("%v", err)
	}
	if len(docs) == 0 {
		fmt.Printf("No documents in %s\n", args[0])
		return
	}
	for _, doc := range docs {
		if getIDsOnly {
			fmt.Println(doc.ID())
			continue
		}
		fmt.Println(formatJSON(doc))
	}
}
