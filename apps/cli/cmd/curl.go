package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/curl"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

var importCurlCmd = &cobra.Command{
	Use:   "importcurl [curl-command]",
	Short: "Import a cURL command as a saved request",
	Long: `Decode a cURL command and save it as an alias. With --file, every command
in the file is imported; the Nth command is saved as ALIAS_N when there
is more than one. If any of those names is already taken, nothing is
imported unless --overwrite is given. Use --file - to read from stdin.

Examples:
  postmaker importcurl "curl -X POST https://api.example.com/users -d '{\"a\":1}'" -a create
  postmaker importcurl -f requests.sh -a api -c imported`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: importCurlCommand,
}

var exportCurlCmd = &cobra.Command{
	Use:   "exportcurl",
	Short: "Export a saved request as a cURL command",
	Long: `Print a saved request, or a request from history, as a cURL command that
can be pasted into a shell.

Examples:
  postmaker exportcurl -a create -c users
  postmaker exportcurl --index 3`,
	Args: usageArgs(cobra.NoArgs),
	RunE: exportCurlCommand,
}

var (
	importCurlAlias      string
	importCurlCollection string
	importCurlFile       string
	importCurlOverwrite  bool

	exportCurlAlias      string
	exportCurlCollection string
	exportCurlIndex      int
)

func init() {
	importCurlCmd.Flags().StringVarP(&importCurlAlias, "alias", "a", "", "Alias for the saved request")
	importCurlCmd.Flags().StringVarP(&importCurlCollection, "collection", "c", "", "Collection name (default: global alias)")
	importCurlCmd.Flags().StringVarP(&importCurlFile, "file", "f", "", "Read commands from a file, or - for stdin")
	importCurlCmd.Flags().BoolVar(&importCurlOverwrite, "overwrite", false, "Replace existing aliases of the same name")
	_ = importCurlCmd.MarkFlagRequired("alias")

	exportCurlCmd.Flags().StringVarP(&exportCurlAlias, "alias", "a", "", "Alias of the saved request")
	exportCurlCmd.Flags().StringVarP(&exportCurlCollection, "collection", "c", "", "Collection name (default: search everywhere)")
	exportCurlCmd.Flags().IntVar(&exportCurlIndex, "index", -1, "Export a history entry instead of an alias")
	exportCurlCmd.MarkFlagsMutuallyExclusive("alias", "index")
	exportCurlCmd.MarkFlagsOneRequired("alias", "index")
}

func curlCommands(cmd *cobra.Command, args []string) ([]string, error) {
	switch {
	case len(args) == 1 && importCurlFile != "":
		return nil, usageError(fmt.Errorf("give a command or --file, not both"))
	case len(args) == 1:
		return args, nil
	case importCurlFile == "":
		return nil, usageError(fmt.Errorf("a cURL command or --file is required"))
	}

	var r io.Reader = cmd.InOrStdin()
	if importCurlFile != "-" {
		f, err := os.Open(importCurlFile)
		if err != nil {
			return nil, usageError(fmt.Errorf("failed to open %s: %w", importCurlFile, err))
		}
		defer f.Close()
		r = f
	}
	commands, err := curl.SplitCommands(r)
	if err != nil {
		return nil, err
	}
	if len(commands) == 0 {
		return nil, usageError(fmt.Errorf("no cURL commands found in %s", importCurlFile))
	}
	return commands, nil
}

func importCurlCommand(cmd *cobra.Command, args []string) error {
	commands, err := curlCommands(cmd, args)
	if err != nil {
		return err
	}

	// Decode everything first so a bad command saves nothing.
	requests := make([]*http.Request, 0, len(commands))
	for i, c := range commands {
		req, err := curl.Decode(c)
		if err != nil {
			if len(commands) > 1 {
				return fmt.Errorf("command %d: %w", i+1, err)
			}
			return err
		}
		requests = append(requests, req)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}

	aliases := make([]workspace.NamedRequest, len(requests))
	for i, req := range requests {
		aliases[i] = workspace.NamedRequest{Name: importCurlAlias, Request: req}
		if len(requests) > 1 {
			aliases[i].Name = fmt.Sprintf("%s_%d", importCurlAlias, i+1)
		}
	}
	// One taken name aborts the whole import.
	if err := store.SaveAliases(aliases, importCurlCollection, importCurlOverwrite); err != nil {
		return err
	}
	for _, alias := range aliases {
		a.console.FormatSuccess(fmt.Sprintf("Imported %s %s as '%s'.", alias.Request.Method, alias.Request.URL, alias.Name))
	}
	return nil
}

func exportCurlCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}

	var req *http.Request
	if cmd.Flags().Changed("index") {
		if exportCurlIndex < 0 {
			return usageError(fmt.Errorf("--index must not be negative"))
		}
		entry, err := store.HistoryEntry(exportCurlIndex)
		if err != nil {
			return err
		}
		req = entry.Request
	} else {
		req, err = lookupAlias(store, exportCurlAlias, exportCurlCollection)
		if err != nil {
			return err
		}
	}

	a.console.FormatCurl(curl.Encode(req))
	return nil
}
