// Package statscmder provides the stats command.
package statscmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/replay/cmd/replay/cmdutil"
	"github.com/papercomputeco/replay/pkg/cliui"
	"github.com/papercomputeco/replay/pkg/storage"
)

const statsLongDesc string = `Show how many buckets and trajectories the store holds.

With --keys the tag sequence of every bucket is listed too, one bucket per
line, in canonical key order.

Examples:
  replay stats
  replay stats --keys
  replay stats --json`

const statsShortDesc string = "Show store statistics"

// Result is the JSON output of the stats command.
type Result struct {
	storage.Stats
	Keys [][]string `json:"keys,omitempty"`
}

func NewStatsCmd() *cobra.Command {
	var (
		asJSON   bool
		withKeys bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := cmdutil.NewLogger(cmd)
			driver, _, err := cmdutil.OpenStore(cmd.Context(), cmd, l)
			if err != nil {
				return err
			}
			defer driver.Close()

			stats, err := driver.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}

			result := Result{Stats: stats}
			if withKeys {
				keys, err := driver.Keys(cmd.Context())
				if err != nil {
					return fmt.Errorf("listing keys: %w", err)
				}
				result.Keys = make([][]string, 0, len(keys))
				for _, k := range keys {
					result.Keys = append(result.Keys, k.Tags())
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(result)
			}

			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Buckets:     "), cliui.ValueStyle.Render(fmt.Sprint(stats.Buckets)))
			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Trajectories:"), cliui.ValueStyle.Render(fmt.Sprint(stats.Trajectories)))
			for _, k := range result.Keys {
				fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(cliui.FormatTags(k)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	cmd.Flags().BoolVar(&withKeys, "keys", false, "List the tag sequence of every bucket")
	cmdutil.AddStorageFlags(cmd)

	return cmd
}
