package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ndacheck configuration",
	Long: `Manage ndacheck configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (NDACHECK_*, e.g. NDACHECK_PLAYBOOK_PRESET)
3. Config file (~/.ndacheck/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Create ~/.ndacheck/config.yaml (or the --config path) holding every option at its default.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// GetConfigCmd export
func GetConfigCmd() *cobra.Command {
	return configCmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if used := vp.ConfigFileUsed(); used != "" {
		fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", used)
	} else {
		fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) (err error) {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	if _, statErr := os.Stat(path); statErr == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse 'ndacheck config show' to view it, or --force to overwrite", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := defaultConfigFile()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", path)
	return nil
}

// defaultConfigFile renders DefaultSettings with a header comment
func defaultConfigFile() ([]byte, error) {
	body, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	header := `# ndacheck configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (NDACHECK_*)
#   3. This config file
#   4. Built-in defaults
#
# playbook.path, when set, replaces playbook.preset.

`
	return append([]byte(header), body...), nil
}
