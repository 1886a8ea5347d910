package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/postmaker/packages/core/config"
	"github.com/abdul-hamid-achik/postmaker/packages/core/runner"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory, scripts and a sample config",
	Long: `Initialize postmaker's data directory.

This creates:
  - <data_dir>/.postmaker.yaml  - Configuration file with defaults
  - <data_dir>/scripts/N.sh     - Stub scripts run by assertions like status=200,N
  - the workspace files for the configured storage backend

Existing scripts are never overwritten.

Examples:
  postmaker init
  postmaker init --force`,
	Args: usageArgs(cobra.NoArgs),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")
}

func initCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	cfg := a.cfg

	if _, err := a.Store(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Data directory: %s (%s storage)\n", cfg.DataDir, cfg.Storage)

	configFile := filepath.Join(cfg.DataDir, config.ConfigName+".yaml")
	if _, err := os.Stat(configFile); err == nil && !forceInit {
		fmt.Fprintf(a.out, "Exists:  %s (use --force to overwrite)\n", configFile)
	} else {
		configContent := map[string]any{
			"storage":          cfg.Storage,
			"timeout":          config.DefaultTimeout,
			"follow_redirects": true,
			"max_redirects":    config.DefaultMaxRedirects,
			"validate_ssl":     true,
			"script_count":     cfg.ScriptCount,
			"log_level":        config.DefaultLogLevel,
			"headers": map[string]string{
				"User-Agent": "postmaker/" + version,
			},
		}
		configYAML, _ := yaml.Marshal(configContent)
		if err := os.WriteFile(configFile, configYAML, 0600); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Fprintf(a.out, "Created: %s\n", configFile)
	}

	scripts := runner.NewScriptRunner(cfg.ScriptsDir, cfg.ScriptCount, a.logger)
	created, err := scripts.EnsureScripts()
	if err != nil {
		return err
	}
	for _, path := range created {
		fmt.Fprintf(a.out, "Created: %s\n", path)
	}

	a.console.FormatSuccess("\npostmaker initialized!")
	fmt.Fprintf(a.out, "Run 'postmaker request https://example.com' to send your first request.\n")
	return nil
}
