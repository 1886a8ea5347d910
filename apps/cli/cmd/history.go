package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View or clear request history",
	Long: `Show recorded requests, oldest first. Each entry's index can be passed
to replay or diff.

Examples:
  postmaker history
  postmaker history -n 5
  postmaker history -s post
  postmaker history --clear`,
	Args: usageArgs(cobra.NoArgs),
	RunE: historyCommand,
}

var replayCmd = &cobra.Command{
	Use:   "replay <index>",
	Short: "Replay a request from history",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  replayCommand,
}

var (
	historyNumber int
	historySearch string
	historyClear  bool

	replayOpts sendFlags
)

func init() {
	historyCmd.Flags().IntVarP(&historyNumber, "number", "n", 0, "Show the N most recent entries")
	historyCmd.Flags().StringVarP(&historySearch, "search", "s", "", "Only entries whose URL or method contains TEXT")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Clear all request history")

	replayOpts.register(replayCmd, "a")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	if historyNumber < 0 {
		return usageError(fmt.Errorf("--number must not be negative"))
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}

	if historyClear {
		if !a.confirm("Clear all request history?") {
			a.console.FormatWarning("Cancelled.")
			return nil
		}
		if err := store.ClearHistory(); err != nil {
			return err
		}
		a.console.FormatSuccess("History cleared.")
		return nil
	}

	a.console.FormatHistory(store.ListHistory(historyNumber, historySearch))
	return nil
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, usageError(fmt.Errorf("history index must be a non-negative integer, got %q", s))
	}
	return n, nil
}

func replayCommand(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	entry, err := store.HistoryEntry(index)
	if err != nil {
		return err
	}
	a.logger.Debug("replaying history entry", "index", entry.Index, "id", entry.ID)
	return sendRequest(cmd.Context(), a, entry.Request.Clone(), &replayOpts)
}
