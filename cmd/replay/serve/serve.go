// Package servecmder provides the serve command, which runs the HTTP API with
// the MCP server mounted at /mcp.
package servecmder

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/replay/api"
	"github.com/papercomputeco/replay/api/mcp"
	"github.com/papercomputeco/replay/cmd/replay/cmdutil"
	"github.com/papercomputeco/replay/pkg/config"
	"github.com/papercomputeco/replay/pkg/logger"
)

type serveCommander struct {
	logFile string
	noMCP   bool
	logger  *slog.Logger
}

const serveLongDesc string = `Run the replay HTTP API server.

The server exposes:
  GET  /ping
  GET  /v1/stats
  GET  /v1/trajectories?tag=a&tag=b&page=0&page_size=20
  POST /v1/trajectories
  POST /v1/snapshot
  /mcp  MCP streamable HTTP endpoint (add_trajectory, fetch_trajectories, trajectory_stats)

Examples:
  replay serve
  replay serve --listen :9000 --backend sqlite
  replay serve --eventstream kafka --brokers localhost:9092`

const serveShortDesc string = "Run the replay API and MCP server"

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagPageSize,
	config.FlagEventStream,
	config.FlagBrokers,
	config.FlagTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP server at /mcp")
	cmdutil.AddStorageFlags(cmd)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, new(string))
	config.AddUintFlag(cmd, config.Flags, config.FlagPageSize, new(uint))
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, new(string))

	return cmd
}

// NewFileLogger returns the JSON logger behind --log-file. With debug set it
// also records the caller's source location.
func NewFileLogger(w io.Writer, debug bool) *slog.Logger {
	return logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.FormatJSON),
		logger.WithSource(debug),
		logger.WithWriter(w),
	)
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	c.logger = cmdutil.NewLogger(cmd)

	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		debug, _ := cmd.Flags().GetBool("debug")
		c.logger = logger.Multi(c.logger, NewFileLogger(f, debug))
	}

	driver, cfg, err := cmdutil.OpenStore(cmd.Context(), cmd, c.logger, serveFlags...)
	if err != nil {
		return err
	}
	defer driver.Close()

	apiConfig := api.Config{
		ListenAddr: cfg.API.Listen,
		PageSize:   int(cfg.Fetch.PageSize),
	}

	if !c.noMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Driver:   driver,
			PageSize: int(cfg.Fetch.PageSize),
			Logger:   c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	server := api.NewServer(apiConfig, driver, c.logger)

	c.logger.Info("serving trajectories",
		"listen", cfg.API.Listen,
		"backend", cfg.Storage.Backend,
		"eventstream", cfg.EventStream.Provider,
		"mcp", !c.noMCP,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
