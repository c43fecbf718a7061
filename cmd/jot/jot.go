// Package jotcmder
package jotcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/paperjotco/jot/cmd/jot/config"
	initcmder "github.com/paperjotco/jot/cmd/jot/init"
	servecmder "github.com/paperjotco/jot/cmd/jot/serve"
	versioncmder "github.com/paperjotco/jot/cmd/version"
)

const jotLongDesc string = `Jot is a personal note-taking service.

Run the service using:
  jot serve            Run the HTTP API server

Manage local state using:
  jot init             Initialize a local .jot/ directory
  jot config           Manage persistent configuration`

const jotShortDesc string = "Jot - Personal Notes Service"

func NewJotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jot",
		Short: jotShortDesc,
		Long:  jotLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .jot/ directory location")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
