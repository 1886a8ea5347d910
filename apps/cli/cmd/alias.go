package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a request to a collection or as a global alias",
	Long: `Save a request under an alias. Without --collection it becomes a global
alias. Placeholders are stored as written and filled on every send.

Examples:
  postmaker save -a health -u {{base}}/health
  postmaker save -a create -c users -X POST -u {{base}}/users -d '{"name":"{{name}}"}'`,
	Args: usageArgs(cobra.NoArgs),
	RunE: saveCommand,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a saved request by alias",
	Long: `Send a saved request. Without --collection the alias is looked up among
global aliases first and then in every collection in name order.

Examples:
  postmaker send -a health --assert status=200
  postmaker send -a create -c users --fill-vars`,
	Args: usageArgs(cobra.NoArgs),
	RunE: sendCommand,
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List, view, or manage collections",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  collectionsListCommand,
}

var globalAliasesCmd = &cobra.Command{
	Use:   "globalaliases [alias]",
	Short: "List all global aliases or show one",
	Args:  usageArgs(cobra.MaximumNArgs(1)),
	RunE:  globalAliasesCommand,
}

var removeGlobalCmd = &cobra.Command{
	Use:   "removeglobal <alias>",
	Short: "Remove a global alias",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  removeGlobalCommand,
}

var (
	saveAlias      string
	saveCollection string
	saveOverwrite  bool
	saveReq        requestFlags

	sendAlias      string
	sendCollection string
	sendAuth       string
	sendOpts       sendFlags

	showAlias string
)

func init() {
	saveCmd.Flags().StringVarP(&saveAlias, "alias", "a", "", "Alias (nickname) for the request")
	saveCmd.Flags().StringVarP(&saveCollection, "collection", "c", "", "Collection name (default: global alias)")
	saveCmd.Flags().BoolVar(&saveOverwrite, "overwrite", false, "Replace an existing alias of the same name")
	saveReq.register(saveCmd)
	_ = saveCmd.MarkFlagRequired("alias")
	_ = saveCmd.MarkFlagRequired("url")

	sendCmd.Flags().StringVarP(&sendAlias, "alias", "a", "", "Alias of the saved request")
	sendCmd.Flags().StringVarP(&sendCollection, "collection", "c", "", "Collection name (default: search everywhere)")
	sendCmd.Flags().StringVar(&sendAuth, "auth", "", "Override authentication for this request")
	sendOpts.register(sendCmd, "")
	_ = sendCmd.MarkFlagRequired("alias")

	collectionsShowCmd.Flags().StringVarP(&showAlias, "alias", "a", "", "Show only this alias")
	collectionsCmd.AddCommand(collectionsListCmd, collectionsShowCmd, collectionsDeleteCmd, collectionsRemoveCmd)
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections and their aliases",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  collectionsListCommand,
}

var collectionsShowCmd = &cobra.Command{
	Use:   "show <collection>",
	Short: "Show the requests in a collection",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  collectionsShowCommand,
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <collection>",
	Short: "Delete a collection and every alias in it",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  collectionsDeleteCommand,
}

var collectionsRemoveCmd = &cobra.Command{
	Use:   "remove <collection:alias | collection alias>",
	Short: "Remove one alias from a collection",
	Args:  usageArgs(cobra.RangeArgs(1, 2)),
	RunE:  collectionsRemoveCommand,
}

func saveCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	req, err := saveReq.build()
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	if err := store.SaveAlias(saveAlias, req, saveCollection, saveOverwrite); err != nil {
		return err
	}

	if saveCollection == "" {
		a.console.FormatSuccess(fmt.Sprintf("Saved global alias '%s'.", saveAlias))
	} else {
		a.console.FormatSuccess(fmt.Sprintf("Saved '%s' to collection '%s'.", saveAlias, saveCollection))
	}
	return nil
}

// lookupAlias resolves an alias in one collection, or everywhere when
// collection is empty.
func lookupAlias(store *workspace.Store, alias, collection string) (*http.Request, error) {
	if collection != "" {
		return store.GetAlias(collection, alias)
	}
	req, _, err := store.FindAlias(alias)
	return req, err
}

func sendCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	req, err := lookupAlias(store, sendAlias, sendCollection)
	if err != nil {
		return err
	}
	if sendAuth != "" {
		auth, err := http.ParseAuth(sendAuth)
		if err != nil {
			return usageError(err)
		}
		req.Auth = auth
	}
	return sendRequest(cmd.Context(), a, req, &sendOpts)
}

func collectionsListCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	a.console.FormatCollections(store.ListCollections())
	return nil
}

func collectionsShowCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}

	if showAlias != "" {
		req, err := store.GetAlias(args[0], showAlias)
		if err != nil {
			return err
		}
		a.console.FormatRequest(showAlias, req)
		return nil
	}

	c, err := store.Collection(args[0])
	if err != nil {
		return err
	}
	a.console.FormatCollection(args[0], c)
	return nil
}

func collectionsDeleteCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	if _, err := store.Collection(args[0]); err != nil {
		return err
	}
	if !a.confirm(fmt.Sprintf("Delete collection '%s' and all of its aliases?", args[0])) {
		a.console.FormatWarning("Cancelled.")
		return nil
	}
	if err := store.DeleteCollection(args[0]); err != nil {
		return err
	}
	a.console.FormatSuccess(fmt.Sprintf("Collection '%s' deleted.", args[0]))
	return nil
}

func collectionsRemoveCommand(cmd *cobra.Command, args []string) error {
	collection, alias, err := splitTarget(args)
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
	if err := store.DeleteAlias(collection, alias); err != nil {
		return err
	}
	a.console.FormatSuccess(fmt.Sprintf("Removed '%s' from collection '%s'.", alias, collection))
	return nil
}

// splitTarget accepts "collection:alias" or two separate arguments.
func splitTarget(args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	collection, alias, ok := strings.Cut(args[0], ":")
	if !ok || collection == "" || alias == "" {
		return "", "", usageError(fmt.Errorf("target must be collection:alias, got %q", args[0]))
	}
	return collection, alias, nil
}

func globalAliasesCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		req, err := store.GetAlias("", args[0])
		if err != nil {
			return err
		}
		a.console.FormatRequest(args[0], req)
		return nil
	}
	a.console.FormatGlobalAliases(store.GlobalAliases())
	return nil
}

func removeGlobalCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	if err := store.DeleteAlias("", args[0]); err != nil {
		return err
	}
	a.console.FormatSuccess(fmt.Sprintf("Global alias '%s' removed.", args[0]))
	return nil
}
