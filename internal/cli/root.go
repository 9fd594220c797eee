// Package cli wires the eodd command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"eodd/internal/config"
)

// Version is stamped at build time with -ldflags "-X eodd/internal/cli.Version=...".
var Version = "dev"

// Options are the persistent flags shared by every command.
type Options struct {
	ConfigPath string
	EnvFiles   []string
	LogLevel   string
	LogFormat  string
}

// Main runs the command tree with args and returns the process exit code.
func Main(args []string, stdout, stderr io.Writer) int {
	root := buildRootCmdWith(&Options{EnvFiles: []string{".env"}})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "eodd: %v\n", err)
		return 1
	}
	return 0
}

// buildRootCmdWith constructs the Cobra command tree bound to opts.
func buildRootCmdWith(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "eodd",
		Short:         "Background worker daemon for the bug-squashing game",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", opts.EnvFiles, "Dotenv files loaded before EODD_* overrides; missing files are ignored")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "Log format: console|json (overrides config)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return loadEnvFiles(opts.EnvFiles)
	}

	root.AddCommand(newServeCmd(opts), newVersionCmd(), newConfigCmd(opts))
	return root
}

func loadEnvFiles(files []string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// resolveConfig loads the config file (if any), applies EODD_* overrides,
// flag overrides and defaults, then validates the result.
func resolveConfig(opts *Options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the eodd version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "eodd", Version)
			return err
		},
	}
}

func newConfigCmd(opts *Options) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Inspect configuration", RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("config requires a subcommand: print")
	}}
	var format string
	printCmd := &cobra.Command{
		Use:     "print",
		Short:   "Print the effective configuration",
		Example: "  eodd config print --config eodd.yaml --format toml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			return config.Encode(cmd.OutOrStdout(), cfg, format)
		},
	}
	printCmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml|json|toml")
	cfgCmd.AddCommand(printCmd)
	return cfgCmd
}
