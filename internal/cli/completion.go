package cli

import (
	"context"
	"os"
	"strings"

	"github.com/kilupskalvis/doctrack/internal/config"
	"github.com/kilupskalvis/doctrack/internal/store"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for doctrack.

Collection names and document ids of the current workspace are completed
for put, get, edit and rm.

Bash:
  $ source <(doctrack completion bash)

Zsh:
  $ source <(doctrack completion zsh)

Fish:
  $ doctrack completion fish | source
`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	putCmd.ValidArgsFunction = completeCollections(false)
	getCmd.ValidArgsFunction = completeCollections(true)
	editCmd.ValidArgsFunction = completeCollections(true)
	rmCmd.ValidArgsFunction = completeCollections(true)
}

// completeCollections completes the collection argument, then document ids
// of that collection when withIDs is set. Errors produce no suggestions.
func completeCollections(withIDs bool) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 && !withIDs {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		cfg, err := config.Load()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		st, err := store.Open(cfg.DatabasePath(), store.LockBackendBolt, "")
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer st.Close()

		var candidates []string
		if len(args) == 0 {
			candidates, err = st.CollectionNames()
		} else {
			candidates, err = documentIDs(cmd.Context(), st, args[0])
		}
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var out []string
		for _, c := range candidates {
			if strings.HasPrefix(c, toComplete) {
				out = append(out, c)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

func documentIDs(ctx context.Context, st *store.Store, collection string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	coll, err := st.Collection(collection)
	if err != nil {
		return nil, err
	}
	docs, err := coll.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID()
	}
	return ids, nil
}
