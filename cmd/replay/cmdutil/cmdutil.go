// Package cmdutil holds the config, logger, and storage wiring shared by the
// replay subcommands.
package cmdutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/replay/pkg/config"
	"github.com/papercomputeco/replay/pkg/dotdir"
	"github.com/papercomputeco/replay/pkg/logger"
	"github.com/papercomputeco/replay/pkg/storage/backend"
	"github.com/papercomputeco/replay/pkg/storage/streamed"
)

// AddStorageFlags registers the storage flags from the registry on cmd.
func AddStorageFlags(cmd *cobra.Command) {
	for _, key := range config.StorageFlags {
		config.AddStringFlag(cmd, config.Flags, key, new(string))
	}
}

// LoadConfig resolves the configuration for cmd with the precedence
// flag > env > config.toml > defaults, binding the given registry keys.
// It also returns the resolved .replay/ directory, which may be "".
func LoadConfig(cmd *cobra.Command, registryKeys []string) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, registryKeys)

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving config dir: %w", err)
	}

	return config.FromViper(v), dir, nil
}

// NewLogger builds the CLI logger, writing to the command's stderr so stdout
// stays clean for command output.
func NewLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.FormatPretty),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
}

// OpenStore resolves configuration for cmd and opens the configured store.
// extraKeys are bound in addition to the storage flags.
func OpenStore(ctx context.Context, cmd *cobra.Command, l *slog.Logger, extraKeys ...string) (*streamed.Driver, *config.Config, error) {
	keys := append(append([]string{}, config.StorageFlags...), extraKeys...)

	cfg, dir, err := LoadConfig(cmd, keys)
	if err != nil {
		return nil, nil, err
	}

	driver, err := backend.Open(ctx, cfg, dir, l)
	if err != nil {
		return nil, nil, err
	}

	return driver, cfg, nil
}
