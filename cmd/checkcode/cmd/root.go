package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/checkcode/internal/config"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// persistentBindings maps configuration keys to the root flags that override them.
var persistentBindings = map[string]string{
	"verbose":          "verbose",
	"log_level":        "log-level",
	"registry.backend": "registry",
	"registry.path":    "registry-path",
	"registry.dsn":     "registry-dsn",
	"registry.url":     "registry-url",
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "checkcode",
	Short: "Generate, register and verify styled QR codes",
	Long: `checkcode renders styled QR codes carrying a verification mark, records them
in a registry and tells whether a scanned code was issued by that registry.

This tool provides:
- Styled generation with colors, gradients, dot and eye shapes and logos
- A registry backed by an embedded store, PostgreSQL or a remote server
- Verification of images, PDFs and camera frame sequences
- Batch verification and an HTTP server with a live camera endpoint

Examples:
  checkcode generate https://example.com --name Example --author "Jane Doe"
  checkcode scan image photo.jpg
  checkcode batch ./scans --format json
  checkcode serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), globalConfig))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			printVersion(cmd.OutOrStdout())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME/.config/checkcode, $XDG_CONFIG_HOME/checkcode, /etc/checkcode)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.PersistentFlags().String("registry", "memory", "registry backend (memory, postgres, remote)")
	rootCmd.PersistentFlags().String("registry-path", "", "journal file for the memory registry (empty keeps records in memory only)")
	rootCmd.PersistentFlags().String("registry-dsn", "", "PostgreSQL connection string for the postgres registry")
	rootCmd.PersistentFlags().String("registry-url", "", "base URL of a checkcode server for the remote registry")

	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")
}

// initConfig resolves configuration from file, environment and flags. Every
// call starts from a fresh viper so repeated executions do not leak state.
func initConfig() error {
	v := viper.New()
	for key, name := range persistentBindings {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	configLoader = config.NewLoaderWithViper(v)

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

// newLogger builds the JSON logger. Logs go to w, which keeps command output
// on stdout machine readable.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			cfg := config.DefaultConfig()
			return &cfg
		}
	}
	return globalConfig
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
