// Package configcmder provides the config command for managing persistent
// jot configuration stored in the .jot/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent jot configuration.

Configuration is stored as config.toml in the .jot/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.backend, storage.sqlite_path, storage.postgres_dsn,
  api.listen,
  uploads.dir, uploads.max_size_mb,
  events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  jot config set <key> <value>    Set a configuration value
  jot config get <key>            Get a configuration value
  jot config list                 List all configuration values

Examples:
  jot config set storage.backend postgres
  jot config set storage.postgres_dsn postgres://localhost/jot
  jot config get api.listen
  jot config list`

const configShortDesc string = "Manage persistent jot configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
