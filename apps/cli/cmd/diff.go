package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/diff"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

var diffExitCode bool

var diffCmd = &cobra.Command{
	Use:   "diff <first> <second>",
	Short: "Diff two responses from history or files",
	Long: `Compare two response bodies line by line. Each argument is a history
index or a file path; an existing file wins over an index. JSON bodies are
compared after sorting keys, so key order never shows up as a change.

Examples:
  postmaker diff 3 4
  postmaker diff 7 expected.json
  postmaker diff before.json after.json --exit-code`,
	Args: usageArgs(cobra.ExactArgs(2)),
	RunE: diffCommand,
}

func init() {
	diffCmd.Flags().BoolVar(&diffExitCode, "exit-code", false, "Exit with status 1 when the bodies differ")
}

func diffCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	left, err := diffSource(a, args[0])
	if err != nil {
		return err
	}
	right, err := diffSource(a, args[1])
	if err != nil {
		return err
	}

	result := diff.Compare(left, right)
	a.console.FormatDiff(result)
	if diffExitCode && !result.Identical() {
		return errAssertionFailed
	}
	return nil
}

// diffSource loads one side of a diff from a file or a history index.
func diffSource(a *app, arg string) (diff.Source, error) {
	if info, err := os.Stat(arg); err == nil && info.Mode().IsRegular() {
		return diff.FromFile(arg)
	}

	index, err := strconv.Atoi(arg)
	if err != nil {
		return diff.Source{}, usageError(fmt.Errorf("%q is neither a file nor a history index", arg))
	}
	store, err := a.Store()
	if err != nil {
		return diff.Source{}, err
	}
	entry, err := store.HistoryEntry(index)
	if err != nil {
		return diff.Source{}, err
	}
	if entry.Response == nil {
		return diff.Source{}, fmt.Errorf("history entry %d has no response: %w", index, workspace.ErrNotFound)
	}
	return diff.FromResponse(fmt.Sprintf("history #%d", index), entry.Response), nil
}
