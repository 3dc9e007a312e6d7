// Package initcmder provides the init command for initializing a local
// .replay directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/replay/pkg/config"
	"github.com/papercomputeco/replay/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .replay/ directory in the current working directory.

Creates a local .replay/ directory that takes precedence over the default
~/.replay/ directory for configuration, the snapshot file, and the SQLite
database. A config.toml with default values is written unless one exists.

Use --preset to write a named preset or a config.toml fetched from a URL.
A preset always overwrites an existing config.toml.

Presets:
  memory    In-memory store persisted to trajectories.snap (default)
  sqlite    SQLite store at .replay/replay.sqlite
  kafka     In-memory store publishing events to Kafka on localhost:9092

Examples:
  replay init
  replay init --preset sqlite
  replay init --preset https://example.com/replay/config.toml`

const initShortDesc string = "Initialize a local .replay/ directory"

const remoteTimeout = 10 * time.Second

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL of a config.toml")

	return cmd
}

func runInit(cmd *cobra.Command, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	out := cmd.OutOrStdout()
	dir := filepath.Join(cwd, dotdir.DirName)
	configPath := filepath.Join(dir, "config.toml")

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()

	if existed && preset == "" {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
		if _, err := os.Stat(configPath); err == nil {
			return nil
		}
	}

	cfg, err := resolvePreset(cmd.Context(), preset)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .replay directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if !existed {
		fmt.Fprintf(out, "Initialized .replay directory: %s\n", dir)
	}
	fmt.Fprintf(out, "Wrote config: %s\n", configPath)
	return nil
}

// resolvePreset returns the config for a preset name or remote URL. An empty
// preset yields the defaults.
func resolvePreset(ctx context.Context, preset string) (*config.Config, error) {
	if preset == "" {
		return config.NewDefaultConfig(), nil
	}

	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		return fetchRemoteConfig(ctx, preset)
	}

	return config.PresetConfig(preset)
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("fetching remote config: empty body")
	}

	return config.ParseConfigTOML(data)
}
