package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/checkcode/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Create a configuration file or show the configuration in effect.

Configuration is resolved from, in order of precedence: command-line flags,
CHECKCODE_* environment variables, the configuration file and built-in defaults.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [FILE]",
	Short: "Write a configuration file with the default settings",
	Long: `Write the default configuration as YAML to FILE (default: checkcode.yaml).

Examples:
  checkcode config init
  checkcode config init ~/.config/checkcode/checkcode.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Print the configuration in effect after applying the configuration file,
environment variables and flags.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configShowCmd.Flags().StringP("format", "f", outputFormatYAML, "output format (yaml, json)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ConfigFileName + ".yaml"
	if len(args) == 1 {
		path = args[0]
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := config.GenerateDefaultConfigFile(path); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return err
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != outputFormatYAML && format != outputFormatJSON {
		return fmt.Errorf("invalid format %q (must be one of: yaml, json)", format)
	}

	if used := GetConfigLoader().GetConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "# config file: %s\n", used)
	}
	return writeStructured(cmd.OutOrStdout(), format, GetConfig())
}
