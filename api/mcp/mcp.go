// Package mcp provides an MCP (Model Context Protocol) server for the replay
// trajectory store.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/utils"
)

type Config struct {
	// Driver is the trajectory store the tools read and write.
	Driver storage.Driver

	// PageSize is used when fetch_trajectories does not set page_size.
	// Defaults to storage.DefaultPageSize.
	PageSize int

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the trajectory tools.
func NewServer(c Config) (*Server, error) {
	if c.Driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if c.PageSize <= 0 {
		c.PageSize = storage.DefaultPageSize
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "replay",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcpServer.AddTool(&mcp.Tool{
		Name:         addToolName,
		Description:  addDescription,
		InputSchema:  addInputSchema,
		OutputSchema: addOutputSchema,
	}, s.handleAdd)

	mcpServer.AddTool(&mcp.Tool{
		Name:         fetchToolName,
		Description:  fetchDescription,
		InputSchema:  fetchInputSchema,
		OutputSchema: fetchOutputSchema,
	}, s.handleFetch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        statsToolName,
		Description: statsDescription,
	}, s.handleStats)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
