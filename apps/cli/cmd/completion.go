package cmd

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Print a completion script for your shell. Besides commands and flags it
completes saved aliases, collections, templates and history indexes from
the current workspace, so "postmaker send -a <TAB>" lists your aliases.

Bash (needs the bash-completion package):
  source <(postmaker completion bash)
  postmaker completion bash > ~/.local/share/bash-completion/completions/postmaker

Zsh (with compinit enabled):
  postmaker completion zsh > "${fpath[1]}/_postmaker"

Fish:
  postmaker completion fish > ~/.config/fish/completions/postmaker.fish

PowerShell:
  postmaker completion powershell | Out-String | Invoke-Expression

Start a new shell after installing a script.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  usageArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

type completeFunc func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective)

// fromWorkspace completes up to maxArgs positional arguments with names read
// from the workspace.
func fromWorkspace(maxArgs int, directive cobra.ShellCompDirective, list func(*cobra.Command, *workspace.Store) []string) completeFunc {
	return func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if maxArgs >= 0 && len(args) >= maxArgs {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		a, err := loadApp(cmd)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		store, err := a.Store()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return list(cmd, store), directive
	}
}

// aliasNames lists the aliases in --collection, or every alias when the
// flag is unset.
func aliasNames(cmd *cobra.Command, store *workspace.Store) []string {
	if f := cmd.Flags().Lookup("collection"); f != nil && f.Value.String() != "" {
		c, err := store.Collection(f.Value.String())
		if err != nil {
			return nil
		}
		return c.Names()
	}

	seen := make(map[string]bool)
	for _, name := range store.GlobalAliases().Names() {
		seen[name] = true
	}
	for _, c := range store.ListCollections() {
		for _, name := range c.Aliases {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func globalAliasNames(_ *cobra.Command, store *workspace.Store) []string {
	return store.GlobalAliases().Names()
}

func collectionNames(_ *cobra.Command, store *workspace.Store) []string {
	var names []string
	for _, c := range store.ListCollections() {
		names = append(names, c.Name)
	}
	return names
}

func templateNames(_ *cobra.Command, store *workspace.Store) []string {
	var names []string
	for _, t := range store.ListTemplates() {
		names = append(names, t.Name)
	}
	return names
}

// historyIndexes offers each index with its request as the description.
func historyIndexes(_ *cobra.Command, store *workspace.Store) []string {
	var out []string
	for _, e := range store.ListHistory(0, "") {
		out = append(out, fmt.Sprintf("%d\t%s %s", e.Index, e.Request.Method, e.Request.URL))
	}
	return out
}

var registerCompletionsOnce sync.Once

// registerCompletions wires workspace completion into commands. It runs
// after every init so all flags exist.
func registerCompletions() {
	noFiles := cobra.ShellCompDirectiveNoFileComp
	anyArgs := -1

	removeGlobalCmd.ValidArgsFunction = fromWorkspace(1, noFiles, globalAliasNames)
	globalAliasesCmd.ValidArgsFunction = fromWorkspace(1, noFiles, globalAliasNames)
	collectionsShowCmd.ValidArgsFunction = fromWorkspace(1, noFiles, collectionNames)
	collectionsDeleteCmd.ValidArgsFunction = fromWorkspace(1, noFiles, collectionNames)
	collectionsRemoveCmd.ValidArgsFunction = fromWorkspace(1, noFiles, collectionNames)
	templateUseCmd.ValidArgsFunction = fromWorkspace(1, noFiles, templateNames)
	templateDeleteCmd.ValidArgsFunction = fromWorkspace(1, noFiles, templateNames)
	replayCmd.ValidArgsFunction = fromWorkspace(1, noFiles, historyIndexes)
	// diff also takes file paths.
	diffCmd.ValidArgsFunction = fromWorkspace(2, cobra.ShellCompDirectiveDefault, historyIndexes)

	for _, c := range []*cobra.Command{sendCmd, exportCurlCmd} {
		_ = c.RegisterFlagCompletionFunc("alias", fromWorkspace(anyArgs, noFiles, aliasNames))
		_ = c.RegisterFlagCompletionFunc("collection", fromWorkspace(anyArgs, noFiles, collectionNames))
	}
	for _, c := range []*cobra.Command{saveCmd, importCurlCmd} {
		_ = c.RegisterFlagCompletionFunc("collection", fromWorkspace(anyArgs, noFiles, collectionNames))
	}
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
