// Package fetchcmder provides the fetch command for reading one page of a
// trajectory bucket.
package fetchcmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/replay/cmd/replay/cmdutil"
	"github.com/papercomputeco/replay/pkg/cliui"
	"github.com/papercomputeco/replay/pkg/config"
	"github.com/papercomputeco/replay/pkg/trajectory"
)

type fetchCommander struct {
	tags   []string
	page   int
	asJSON bool
}

// Result is the JSON document printed by fetch.
type Result struct {
	Tags         []string                 `json:"tags"`
	Page         int                      `json:"page"`
	PageSize     int                      `json:"page_size"`
	Trajectories []*trajectory.Trajectory `json:"trajectories"`
}

const fetchLongDesc string = `Fetch one page of the bucket for an exact tag sequence.

The lookup key is the --tag flags in the order given. Trajectories come back
in insertion order. Pages are zero based; a page past the end is empty.

Output is rendered markdown on a terminal and JSON otherwise. Use --json to
force JSON.

Examples:
  replay fetch --tag login --tag form
  replay fetch --tag login --page 2 --page-size 5 --json`

const fetchShortDesc string = "Fetch a page of trajectories by tags"

func NewFetchCmd() *cobra.Command {
	cmder := &fetchCommander{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: fetchShortDesc,
		Long:  fetchLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&cmder.tags, "tag", "t", nil, "Tag of the bucket (repeatable, order matters)")
	cmd.Flags().IntVar(&cmder.page, "page", 0, "Zero based page number")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print JSON even on a terminal")
	config.AddUintFlag(cmd, config.Flags, config.FlagPageSize, new(uint))
	cmdutil.AddStorageFlags(cmd)

	return cmd
}

func (c *fetchCommander) run(cmd *cobra.Command) error {
	if c.page < 0 {
		return fmt.Errorf("invalid page %d: must not be negative", c.page)
	}

	l := cmdutil.NewLogger(cmd)
	driver, cfg, err := cmdutil.OpenStore(cmd.Context(), cmd, l, config.FlagPageSize)
	if err != nil {
		return err
	}
	defer driver.Close()

	pageSize := int(cfg.Fetch.PageSize)
	ts, err := driver.Fetch(cmd.Context(), c.tags, c.page, pageSize)
	if err != nil {
		return fmt.Errorf("fetching trajectories: %w", err)
	}

	out := cmd.OutOrStdout()
	if !c.asJSON && cliui.IsTerminal(out) {
		rendered, err := cliui.RenderMarkdown(cliui.TrajectoriesMarkdown(c.tags, c.page, ts))
		if err != nil {
			l.Debug("markdown rendering failed", "error", err)
		}
		_, err = io.WriteString(out, rendered)
		return err
	}

	tags := c.tags
	if tags == nil {
		tags = []string{}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(Result{
		Tags:         tags,
		Page:         c.page,
		PageSize:     pageSize,
		Trajectories: ts,
	})
}
