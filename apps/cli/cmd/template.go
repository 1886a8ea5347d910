package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/output"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage request templates (save, list, use, delete)",
	Long: `Templates are requests saved with their placeholders left open. Using a
template always prompts for every placeholder without a stored variable,
shows the resolved request and asks before sending.

Examples:
  postmaker template save -n login -X POST -u {{base}}/login -d '{"user":"{{user}}"}' --assert status=200
  postmaker template list
  postmaker template use login
  postmaker template delete login`,
}

var templateSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a new template, replacing one of the same name",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  templateSaveCommand,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all templates",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  templateListCommand,
}

var templateUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Fill in and send a template",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  templateUseCommand,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a template",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  templateDeleteCommand,
}

var (
	templateName    string
	templateReq     requestFlags
	templateOptions workspace.TemplateOptions

	templateUseAuth string
	templateUseOpts sendFlags
)

func init() {
	templateSaveCmd.Flags().StringVarP(&templateName, "name", "n", "", "Template name")
	templateReq.register(templateSaveCmd)
	templateSaveCmd.Flags().StringVar(&templateOptions.Assertion, "assert", "", "Assertion checked on every use")
	templateSaveCmd.Flags().StringVar(&templateOptions.Only, "only", "", "Part of the response to print on use: body, headers or status")
	templateSaveCmd.Flags().StringVarP(&templateOptions.Output, "output", "o", "", "File the response report is written to on use")
	_ = templateSaveCmd.MarkFlagRequired("name")
	_ = templateSaveCmd.MarkFlagRequired("url")

	templateUseCmd.Flags().StringVar(&templateUseAuth, "auth", "", "Override authentication for this request")
	templateUseOpts.register(templateUseCmd, "a")

	templateCmd.AddCommand(templateSaveCmd, templateListCmd, templateUseCmd, templateDeleteCmd)
}

func templateSaveCommand(cmd *cobra.Command, args []string) error {
	if !output.ValidOnly(templateOptions.Only) {
		return usageError(fmt.Errorf("invalid --only %q (use body, headers or status)", templateOptions.Only))
	}
	if templateOptions.Assertion != "" {
		if _, err := assertions.Parse(templateOptions.Assertion); err != nil {
			return err
		}
	}
	req, err := templateReq.build()
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
	t := workspace.NewTemplate(templateName, req, templateOptions)
	if err := store.SaveTemplate(t); err != nil {
		return err
	}
	a.console.FormatSuccess(fmt.Sprintf("Template '%s' saved with %d placeholders.", t.Name, len(t.Placeholders)))
	return nil
}

func templateListCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	a.console.FormatTemplates(store.ListTemplates())
	return nil
}

func templateUseCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	t, err := store.UseTemplate(args[0])
	if err != nil {
		return err
	}

	req := t.Request
	if templateUseAuth != "" {
		auth, err := http.ParseAuth(templateUseAuth)
		if err != nil {
			return usageError(err)
		}
		req.Auth = auth
	}

	opts := templateSendFlags(cmd, t, templateUseOpts)
	return sendRequest(cmd.Context(), a, req, &opts)
}

// templateSendFlags applies the options stored with t wherever the command
// line left them unset. Templates always prompt and confirm.
func templateSendFlags(cmd *cobra.Command, t *workspace.Template, f sendFlags) sendFlags {
	flags := cmd.Flags()
	if !flags.Changed("assert") {
		f.assertion = t.Options.Assertion
	}
	if !flags.Changed("only") {
		f.only = t.Options.Only
	}
	if !flags.Changed("output") {
		f.output = t.Options.Output
	}
	f.fillVars = true
	f.preview = true
	return f
}

func templateDeleteCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	if err := store.DeleteTemplate(args[0]); err != nil {
		return err
	}
	a.console.FormatSuccess(fmt.Sprintf("Template '%s' deleted.", args[0]))
	return nil
}
