// Package configcmder provides the config command for managing persistent
// replay configuration stored in the .replay/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/replay/pkg/cliui"
	"github.com/papercomputeco/replay/pkg/config"
)

const configLongDesc string = `Manage persistent replay configuration.

Configuration is stored as config.toml in the .replay/ directory and provides
default values for command flags. CLI flags and REPLAY_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.backend, storage.snapshot_path, storage.sqlite_path, storage.postgres_dsn,
  api.listen, fetch.page_size,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  replay config set <key> <value>    Set a configuration value
  replay config get <key>            Get a configuration value
  replay config list                 List all configuration values

Examples:
  replay config set storage.backend sqlite
  replay config set fetch.page_size 50
  replay config get storage.backend
  replay config list`

const configShortDesc string = "Manage persistent replay configuration"

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

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}
