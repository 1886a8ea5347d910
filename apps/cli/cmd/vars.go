package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/core/env"
)

var setVarCmd = &cobra.Command{
	Use:   "setvar <name> <value>",
	Short: "Set a variable",
	Long: `Set a variable used to fill {{name}} placeholders. Remaining arguments
are joined with spaces to form the value.

Examples:
  postmaker setvar base https://api.example.com
  postmaker setvar greeting hello world`,
	Args: usageArgs(cobra.MinimumNArgs(2)),
	RunE: setVarCommand,
}

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "View, remove, load or clear variables",
	Long: `Without flags, print every stored variable.

Examples:
  postmaker vars
  postmaker vars --remove token
  postmaker vars --load .env
  postmaker vars --clear`,
	Args: usageArgs(cobra.NoArgs),
	RunE: varsCommand,
}

var (
	varsRemove string
	varsClear  bool
	varsLoad   string
)

func init() {
	varsCmd.Flags().StringVar(&varsRemove, "remove", "", "Remove a variable by name")
	varsCmd.Flags().BoolVar(&varsClear, "clear", false, "Remove every variable")
	varsCmd.Flags().StringVar(&varsLoad, "load", "", "Merge variables from a .env file")
	varsCmd.MarkFlagsMutuallyExclusive("remove", "clear", "load")
}

func setVarCommand(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !env.IsName(name) {
		return usageError(fmt.Errorf("invalid variable name %q (use letters, digits and _)", name))
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	if err := store.SetVariable(name, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	a.console.FormatSuccess(fmt.Sprintf("Variable '%s' set.", name))
	return nil
}

func varsCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}

	switch {
	case varsRemove != "":
		if err := store.RemoveVariable(varsRemove); err != nil {
			return err
		}
		a.console.FormatSuccess(fmt.Sprintf("Variable '%s' removed.", varsRemove))

	case varsClear:
		if !a.confirm("Remove every variable?") {
			a.console.FormatWarning("Cancelled.")
			return nil
		}
		if err := store.ClearVariables(); err != nil {
			return err
		}
		a.console.FormatSuccess("All variables cleared.")

	case varsLoad != "":
		vars, err := env.LoadDotEnv(varsLoad)
		if err != nil {
			return usageError(err)
		}
		if err := store.SetVariables(vars); err != nil {
			return err
		}
		a.console.FormatSuccess(fmt.Sprintf("Loaded %d variables from %s.", len(vars), varsLoad))

	default:
		a.console.FormatVariables(store.Variables())
	}
	return nil
}
