package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paperjotco/jot/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .jot/ directory. Keys use dotted notation matching
the TOML section structure.

Valid keys:
  storage.backend, storage.sqlite_path, storage.postgres_dsn,
  api.listen,
  uploads.dir, uploads.max_size_mb,
  events.brokers, events.topic

Examples:
  jot config set storage.backend postgres
  jot config set storage.postgres_dsn postgres://localhost/jot
  jot config set uploads.max_size_mb 100`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(args[0], args[1], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runSet(key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Printf("%s = %q\n", key, value)
	fmt.Printf("Saved to %s\n", cfger.GetTarget())

	return nil
}
