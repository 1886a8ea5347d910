package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/core/runner"
	"github.com/abdul-hamid-achik/postmaker/packages/output"
)

var chainCmd = &cobra.Command{
	Use:   "chain <file>",
	Short: "Run a chain of requests from a file",
	Long: `Run every request in a JSON chain file in order. A step either names a
saved alias or spells out the request, and may carry its own assertion.
A failing step is reported and the chain moves on to the next one.

Chain file:
  [
    {"alias": "login", "assertion": "status=200"},
    {"method": "GET", "url": "{{base}}/me", "auth": "bearer {{token}}", "only": "body"},
    {"name": "cleanup", "method": "DELETE", "url": "{{base}}/sessions", "output_file": "out.txt"}
  ]

Examples:
  postmaker chain smoke.json
  postmaker chain smoke.json --watch`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: chainCommand,
}

var (
	chainWatch     bool
	chainFillVars  bool
	chainNoHistory bool
	chainDryRun    bool
	chainJSON      bool
)

func init() {
	chainCmd.Flags().BoolVarP(&chainWatch, "watch", "w", false, "Re-run the chain whenever the file changes")
	chainCmd.Flags().BoolVar(&chainFillVars, "fill-vars", false, "Prompt for placeholders with no stored variable")
	chainCmd.Flags().BoolVar(&chainNoHistory, "no-history", false, "Do not record these requests in history")
	chainCmd.Flags().BoolVar(&chainDryRun, "dry-run", false, "Resolve every step without sending")
	chainCmd.Flags().BoolVar(&chainJSON, "json", false, "Print step results as JSON, one object per line")
}

func chainCommand(cmd *cobra.Command, args []string) error {
	path := args[0]
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	r, err := a.Runner()
	if err != nil {
		return err
	}

	failed, err := runChainFile(cmd.Context(), a, r, path)
	if !chainWatch {
		if err != nil {
			return err
		}
		if failed {
			return errAssertionFailed
		}
		return nil
	}
	if err != nil {
		a.console.FormatError(err)
	}

	fmt.Fprintf(a.out, "\nWatching %s for changes... (press Ctrl+C to stop)\n", path)
	return runner.Watch(cmd.Context(), path, runner.WatchDebounceDelay, func() {
		fmt.Fprintf(a.out, "\n\nFile changed: %s\nRe-running chain...\n\n", path)
		if _, err := runChainFile(cmd.Context(), a, r, path); err != nil {
			a.console.FormatError(err)
		}
		fmt.Fprintf(a.out, "\nWatching %s for changes... (press Ctrl+C to stop)\n", path)
	})
}

// runChainFile loads and runs one chain, reporting as steps complete. It
// returns whether any step failed.
func runChainFile(ctx context.Context, a *app, r *runner.Runner, path string) (bool, error) {
	steps, err := runner.LoadChain(path)
	if err != nil {
		return false, usageError(err)
	}

	opts := &runner.SendOptions{
		FillVars:  chainFillVars,
		NoHistory: chainNoHistory,
		DryRun:    chainDryRun,
	}
	jf := output.NewJSONFormatter(output.WithJSONWriter(a.out))

	results := r.RunChain(ctx, steps, opts, func(sr *runner.StepResult) {
		if chainJSON {
			if err := jf.FormatChainStep(sr); err != nil {
				a.logger.Warn("failed to write step result", "error", err)
			}
		} else {
			a.console.FormatChainStep(sr)
		}

		if sr.Err == nil && sr.Step.Output != "" && sr.Result.Response != nil {
			if err := output.WriteResponseFile(sr.Step.Output, sr.Result.Request, sr.Result.Response); err != nil {
				a.logger.Warn("failed to write step output", "step", sr.Index+1, "error", err)
			}
		}
	})

	if !chainJSON {
		a.console.FormatChainSummary(results)
	}

	failed := len(results) < len(steps)
	for _, sr := range results {
		if !sr.Passed() {
			failed = true
		}
	}
	return failed, nil
}
