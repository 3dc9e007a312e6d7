// Package snapshotcmder provides the snapshot command, which forces the
// store to write its snapshot file.
package snapshotcmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/replay/cmd/replay/cmdutil"
	"github.com/papercomputeco/replay/pkg/cliui"
	"github.com/papercomputeco/replay/pkg/storage"
)

const snapshotLongDesc string = `Write the whole trajectory index to the snapshot file.

The memory backend snapshots after every add; this command rewrites the
snapshot on demand. Backends without a snapshot file report an error.

Examples:
  replay snapshot`

const snapshotShortDesc string = "Write the snapshot file"

func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: snapshotShortDesc,
		Long:  snapshotLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := cmdutil.NewLogger(cmd)
			driver, _, err := cmdutil.OpenStore(cmd.Context(), cmd, l)
			if err != nil {
				return err
			}
			defer driver.Close()

			err = cliui.Step(cmd.OutOrStdout(), "Writing snapshot", func() error {
				return driver.SaveToDisk(cmd.Context())
			})
			if errors.Is(err, storage.ErrSnapshotUnsupported) {
				return fmt.Errorf("%w: use the memory backend", err)
			}
			return err
		},
	}

	cmdutil.AddStorageFlags(cmd)

	return cmd
}
