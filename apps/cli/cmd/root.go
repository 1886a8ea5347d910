package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag    string
	noColorFlag   bool
	verboseFlag   bool
	insecureFlag  bool
	proxyFlag     string
	timeoutFlag   time.Duration
	storageFlag   string
	yesFlag       bool
	mockFlag      int
	mockDelayFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "postmaker",
	Short: "Send, save and replay HTTP requests from the terminal.",
	Long: `postmaker is a terminal HTTP client. Compose requests with flags or
import them from cURL, save them as aliases in collections, fill
{{placeholders}} from stored variables, check responses with simple
assertions, and diff or replay anything in the request history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registerCompletionsOnce.Do(registerCompletions)

	// cobra keeps the first context it hands a subcommand; replace it so a
	// later run in the same process does not inherit a cancelled one.
	setContext(rootCmd, ctx)
	err := rootCmd.ExecuteContext(ctx)
	if current != nil {
		current.close()
		current = nil
	}
	if err != nil && !errors.Is(err, errAssertionFailed) {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
	}
	return exitCode(err)
}

func setContext(c *cobra.Command, ctx context.Context) {
	c.SetContext(ctx)
	for _, sub := range c.Commands() {
		setContext(sub, ctx)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", "", "Path to config file (default: ./.postmaker.yaml or <data_dir>/.postmaker.yaml)")
	flags.BoolVar(&noColorFlag, "no-color", false, "Disable colored output (env: POSTMAKER_NO_COLOR)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Print the full request and debug logs (env: POSTMAKER_VERBOSE)")
	flags.BoolVarP(&insecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	flags.StringVar(&proxyFlag, "proxy", "", "Proxy URL for HTTP requests (env: POSTMAKER_PROXY)")
	flags.DurationVar(&timeoutFlag, "timeout", 0, "Request timeout, e.g. 10s (env: POSTMAKER_TIMEOUT in ms)")
	flags.StringVar(&storageFlag, "storage", "", "Workspace backend: json or sqlite (env: POSTMAKER_STORAGE)")
	flags.BoolVarP(&yesFlag, "yes", "y", false, "Answer yes to confirmation prompts")
	flags.IntVar(&mockFlag, "mock", 0, "Answer every request with a canned JSON response of this status instead of sending it")
	flags.Lookup("mock").NoOptDefVal = "200"
	flags.DurationVar(&mockDelayFlag, "mock-delay", 0, "Hold each mock response this long")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(globalAliasesCmd)
	rootCmd.AddCommand(removeGlobalCmd)
	rootCmd.AddCommand(setVarCmd)
	rootCmd.AddCommand(varsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(importCurlCmd)
	rootCmd.AddCommand(exportCurlCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// usageArgs wraps a cobra positional-args validator so its failures map to the
// usage exit code.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		return usageError(fn(cmd, a))
	}
}
