// Package addcmder provides the add command for appending a trajectory to
// the store.
package addcmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/replay/cmd/replay/cmdutil"
	"github.com/papercomputeco/replay/pkg/cliui"
	"github.com/papercomputeco/replay/pkg/config"
	"github.com/papercomputeco/replay/pkg/trajectory"
	"github.com/papercomputeco/replay/pkg/utils"
)

const payloadPreviewLen = 60

type addCommander struct {
	tags    []string
	payload string
	file    string
	asJSON  bool
}

const addLongDesc string = `Append a trajectory to the bucket for its tags.

Tags are given with repeated --tag flags; their order is significant.
The payload is any JSON value, read from --payload, from --file, or from
stdin when neither is given.

Examples:
  replay add --tag login --tag form --payload '{"step":1}'
  replay add --tag login --file trajectory.json
  echo '{"step":2}' | replay add --tag login`

const addShortDesc string = "Append a trajectory"

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&cmder.tags, "tag", "t", nil, "Tag for the trajectory (repeatable, order matters)")
	cmd.Flags().StringVarP(&cmder.payload, "payload", "p", "", "JSON payload")
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Read the JSON payload from a file")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the stored trajectory as JSON")
	cmd.MarkFlagsMutuallyExclusive("payload", "file")
	cmdutil.AddStorageFlags(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, new(string))

	return cmd
}

func (c *addCommander) run(cmd *cobra.Command) error {
	payload, err := c.readPayload(cmd.InOrStdin())
	if err != nil {
		return err
	}

	l := cmdutil.NewLogger(cmd)
	driver, _, err := cmdutil.OpenStore(cmd.Context(), cmd, l,
		config.FlagEventStream, config.FlagBrokers, config.FlagTopic)
	if err != nil {
		return err
	}
	defer driver.Close()

	t := trajectory.New(c.tags, payload)
	if err := driver.Add(cmd.Context(), t); err != nil {
		return fmt.Errorf("adding trajectory: %w", err)
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}

	fmt.Fprintf(out, "%s Added %s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(t.ID),
		cliui.ValueStyle.Render(fmt.Sprintf("%q", c.tags)),
		cliui.DimStyle.Render(utils.Truncate(string(t.Payload), payloadPreviewLen)),
	)
	return nil
}

func (c *addCommander) readPayload(stdin io.Reader) (json.RawMessage, error) {
	var data []byte
	switch {
	case c.payload != "":
		data = []byte(c.payload)
	case c.file != "":
		b, err := os.ReadFile(c.file)
		if err != nil {
			return nil, fmt.Errorf("reading payload file: %w", err)
		}
		data = b
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading payload from stdin: %w", err)
		}
		data = b
	}

	if len(data) == 0 {
		return nil, errors.New("no payload given: use --payload, --file, or stdin")
	}
	if !json.Valid(data) {
		return nil, errors.New("payload is not valid JSON")
	}

	return json.RawMessage(data), nil
}
