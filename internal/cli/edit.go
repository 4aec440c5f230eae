package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/doctrack/internal/core"
	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/kilupskalvis/doctrack/internal/store"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <collection> <id>",
	Short: "Edit a document and write back the changes",
	Long: `Edit a stored document and write back only what changed.

Fields are changed with --set path=<json> and --unset path, where numeric
path segments index arrays (e.g. items.2.qty). --doc replaces the whole
document body. With --dry-run the compiled write plan is shown and nothing
is written.`,
	Args: cobra.ExactArgs(2),
	Run:  runEdit,
}

var (
	editSet    []string
	editUnset  []string
	editDoc    string
	editDryRun bool
)

func init() {
	editCmd.Flags().StringArrayVar(&editSet, "set", nil, "Set a field: path=<json value> (repeatable)")
	editCmd.Flags().StringArrayVar(&editUnset, "unset", nil, "Remove a field (repeatable)")
	editCmd.Flags().StringVar(&editDoc, "doc", "", "Replace the document body with this JSON object (\"-\" reads stdin)")
	editCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Show the write plan without applying it")
}

func runEdit(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initContext()
	defer c.Close()

	coll := documentsIn(c, args[0])
	doc, err := coll.FindByID(bgCtx, args[1])
	if err != nil {
		exitError("%v", err)
	}

	if editDoc != "" {
		data, err := readInput([]string{editDoc})
		if err != nil {
			exitError("failed to read document: %v", err)
		}
		body, err := parseDocument(data)
		if err != nil {
			exitError("invalid document: %v", err)
		}
		replaceBody(doc, body)
	}

	update, err := buildUpdate(editSet, editUnset)
	if err != nil {
		exitError("%v", err)
	}
	if err := store.ApplyUpdate(doc, update); err != nil {
		exitError("%v", err)
	}

	compiled, err := coll.Compile()
	if err != nil {
		exitError("%v", err)
	}
	if compiled.IsEmpty() {
		fmt.Println("No changes")
		return
	}

	printPlan(coll.Name(), compiled)
	if editDryRun {
		return
	}

	result, err := core.SubmitWithRetry(bgCtx, c.Tracking, c.retryConfig())
	if err != nil {
		exitError("failed to submit: %v", err)
	}
	fmt.Printf("\n%d operations in %d groups, %d locks\n", result.Operations, result.Groups, result.Locks)
}

// buildUpdate turns --set / --unset flags into update operators
func buildUpdate(sets, unsets []string) (*models.UpdateDocument, error) {
	update := &models.UpdateDocument{}
	for _, s := range sets {
		path, raw, ok := strings.Cut(s, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid --set %q, expected path=<json>", s)
		}
		v, err := parseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", path, err)
		}
		update.SetField(path, v)
	}
	for _, path := range unsets {
		update.UnsetField(path)
	}
	return update, nil
}

// replaceBody swaps every field except _id for the fields of body
func replaceBody(doc, body *models.Document) {
	for _, name := range doc.Keys() {
		if name != models.IDField {
			doc.Delete(name)
		}
	}
	for _, f := range body.Fields() {
		if f.Name != models.IDField {
			doc.Set(f.Name, f.Value)
		}
	}
}

// printPlan shows compiled operations in execution order
func printPlan(collection string, compiled *core.CompiledChanges) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	for _, opType := range []models.OperationType{models.OperationDelete, models.OperationInsert, models.OperationUpdate} {
		for _, op := range compiled.Operations {
			if op.Type != opType {
				continue
			}
			switch op.Type {
			case models.OperationDelete:
				red.Printf("- %s/%s\n", collection, op.DocumentID)
			case models.OperationInsert:
				green.Printf("+ %s/%s\n", collection, op.DocumentID)
			case models.OperationUpdate:
				yellow.Printf("~ %s/%s ", collection, shortID(op.DocumentID))
				fmt.Printf("[%d] %s\n", op.ExecutionOrder, op.Update)
			}
		}
	}

	if len(compiled.Locks) > 0 {
		fmt.Println()
		for _, l := range compiled.Locks {
			cyan.Printf("  lock %s.%s\n", shortID(l.DocumentID), l.Field)
		}
	}
}
