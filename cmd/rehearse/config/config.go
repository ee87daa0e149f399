// Package configcmder provides the config command for managing persistent
// rehearse configuration stored in the .rehearse/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent rehearse configuration.

Configuration is stored as config.toml in the .rehearse/ directory and provides
default values for command flags. CLI flags and REHEARSE_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.target, client.timeout,
  server.listen, server.upstream, server.model, server.api_key_env,
  generation.dialog_turns,
  log.file, log.telemetry

Use subcommands to get, set, or list configuration values:
  rehearse config set <key> <value>    Set a configuration value
  rehearse config get <key>            Get a configuration value
  rehearse config list                 List all configuration values

Examples:
  rehearse config set client.target http://trainer:5000
  rehearse config set generation.dialog_turns 8
  rehearse config get server.model
  rehearse config list`

const configShortDesc string = "Manage persistent rehearse configuration"

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
