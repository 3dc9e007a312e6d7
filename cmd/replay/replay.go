// Package replaycmder
package replaycmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/papercomputeco/replay/cmd/replay/add"
	configcmder "github.com/papercomputeco/replay/cmd/replay/config"
	fetchcmder "github.com/papercomputeco/replay/cmd/replay/fetch"
	initcmder "github.com/papercomputeco/replay/cmd/replay/init"
	servecmder "github.com/papercomputeco/replay/cmd/replay/serve"
	snapshotcmder "github.com/papercomputeco/replay/cmd/replay/snapshot"
	statscmder "github.com/papercomputeco/replay/cmd/replay/stats"
	versioncmder "github.com/papercomputeco/replay/cmd/version"
)

const replayLongDesc string = `Replay is a tag-indexed trajectory store.

Trajectories are grouped by their exact, ordered tag sequence and read back
in insertion order, one page at a time:
  replay add --tag login --tag form --payload '{"step":1}'
  replay fetch --tag login --tag form
  replay serve      Run the HTTP API and MCP server`

const replayShortDesc string = "Replay - tag-indexed trajectory store"

func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "replay",
		Short:        replayShortDesc,
		Long:         replayLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .replay/ directory")

	// Add subcommands
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(fetchcmder.NewFetchCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(snapshotcmder.NewSnapshotCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
