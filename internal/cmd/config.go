package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/Lostmyname/release-tagger/internal/pkg/config"
	"github.com/Lostmyname/release-tagger/internal/pkg/ui"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage release-tagger configuration",
		Long: `Manage release-tagger configuration settings.

Use subcommands to initialize, view, or modify configuration values.
Configuration is stored in ~/.release_tagger/config.yaml by default and
every key can be overridden with a RELEASE_TAGGER_* environment variable
(e.g. RELEASE_TAGGER_GIT_PRIMARY_BRANCH).`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigGetCmd())
	configCmd.AddCommand(newConfigListCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func configManager(cmd *cobra.Command) (*config.ViperManager, error) {
	configPath, _ := cmd.Flags().GetString("config")
	mgr, err := config.NewManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	return mgr, nil
}

// newConfigInitCmd creates the 'config init' subcommand.
func newConfigInitCmd() *cobra.Command {
	var useDefaults bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long: `Create the configuration file, asking for the main settings interactively.

With --defaults the file is written with default values and no questions.
The file is created with permissions 0600.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}

			if useDefaults {
				if err := mgr.Init(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at %s\n", mgr.GetConfigPath())
				return nil
			}

			if mgr.ConfigExists() {
				return fmt.Errorf("config file already exists at %s", mgr.GetConfigPath())
			}
			return ui.RunInteractiveSetup(mgr, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Write default values without prompting")
	return cmd
}

// newConfigSetCmd creates the 'config set' subcommand.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value by key.

Supports nested keys using dot notation. List values are comma separated.

Examples:
  release-tagger config set git.primary_branch main
  release-tagger config set registry.package_prefix lmn-
  release-tagger config set registry.archs noarch,x86_64
  release-tagger config set ui.non_interactive true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}

			if !mgr.ConfigExists() {
				return fmt.Errorf("config file not found. Run 'release-tagger config init' first")
			}

			if err := mgr.Set(key, value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// newConfigGetCmd creates the 'config get' subcommand.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}

			value, err := mgr.Get(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

// newConfigListCmd creates the 'config list' subcommand.
func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  `Display all current configuration values, including environment overrides and defaults.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}

			printSettings(cmd.OutOrStdout(), "", mgr.List())
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' subcommand.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := configManager(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), mgr.GetConfigPath())
			return nil
		},
	}
}

// printSettings prints nested settings in sorted order with indentation.
func printSettings(w io.Writer, indent string, settings map[string]interface{}) {
	for _, key := range slices.Sorted(maps.Keys(settings)) {
		switch v := settings[key].(type) {
		case map[string]interface{}:
			fmt.Fprintf(w, "%s%s:\n", indent, key)
			printSettings(w, indent+"  ", v)
		default:
			fmt.Fprintf(w, "%s%s: %v\n", indent, key, v)
		}
	}
}
