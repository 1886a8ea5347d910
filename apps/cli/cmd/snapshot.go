package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export collections, aliases, variables and templates",
	Long: `Write the workspace to a snapshot file. The format follows the file
extension unless --format is given. --target keeps a single section and
writes the others empty.

Examples:
  postmaker export backup.json
  postmaker export backup.yaml
  postmaker export vars.json --target variables`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: exportCommand,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the workspace with a snapshot file",
	Long: `Read a snapshot written by export and replace collections, global
aliases, variables and templates with its contents. Sections missing from
the file become empty. History is not touched.

Examples:
  postmaker import backup.json
  postmaker import backup.yaml --yes`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: importCommand,
}

// Export targets.
const (
	targetAll         = "all"
	targetCollections = "collections"
	targetAliases     = "aliases"
	targetVariables   = "variables"
	targetTemplates   = "templates"
)

var (
	snapshotFormat string
	exportTarget   string
)

func init() {
	exportCmd.Flags().StringVar(&snapshotFormat, "format", "", "Snapshot format: json or yaml (default: from extension)")
	exportCmd.Flags().StringVarP(&exportTarget, "target", "t", targetAll, "Section to export: all, collections, aliases, variables or templates")
	importCmd.Flags().StringVar(&snapshotFormat, "format", "", "Snapshot format: json or yaml (default: from extension)")
}

func snapshotFormatFor(path string) (workspace.Format, error) {
	if snapshotFormat == "" {
		return workspace.FormatFromPath(path), nil
	}
	format, err := workspace.ParseFormat(snapshotFormat)
	if err != nil {
		return "", usageError(err)
	}
	return format, nil
}

// selectTarget empties every section of snap except target.
func selectTarget(snap *workspace.Snapshot, target string) (*workspace.Snapshot, error) {
	out := workspace.NewSnapshot()
	switch strings.ToLower(target) {
	case targetAll:
		return snap, nil
	case targetCollections:
		out.Collections = snap.Collections
	case targetAliases:
		out.GlobalAliases = snap.GlobalAliases
	case targetVariables:
		out.Variables = snap.Variables
	case targetTemplates:
		out.Templates = snap.Templates
	default:
		return nil, usageError(fmt.Errorf("unknown export target %q (use all, collections, aliases, variables or templates)", target))
	}
	return out, nil
}

func exportCommand(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, err := snapshotFormatFor(path)
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
	snap, err := selectTarget(store.ExportAll(), exportTarget)
	if err != nil {
		return err
	}

	data, err := workspace.EncodeSnapshot(snap, format)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.console.FormatSuccess(fmt.Sprintf("Exported %s to %s.", strings.ToLower(exportTarget), path))
	return nil
}

func importCommand(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, err := snapshotFormatFor(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return usageError(fmt.Errorf("failed to read %s: %w", path, err))
	}
	snap, err := workspace.DecodeSnapshot(data, format)
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("cannot import %s: %w", path, err)}
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.Store()
	if err != nil {
		return err
	}
	if !a.confirm("Replace all collections, aliases, variables and templates?") {
		a.console.FormatWarning("Cancelled.")
		return nil
	}
	if err := store.ImportAll(snap); err != nil {
		return err
	}
	a.console.FormatSuccess(fmt.Sprintf("Imported %d collections, %d global aliases, %d variables and %d templates from %s.",
		len(snap.Collections), len(snap.GlobalAliases), len(snap.Variables), len(snap.Templates), path))
	return nil
}
