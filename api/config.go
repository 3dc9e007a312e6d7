// Package api provides an HTTP API server for adding and fetching trajectories.
package api

import "net/http"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// PageSize is used when a fetch request does not set page_size.
	// Defaults to storage.DefaultPageSize.
	PageSize int

	// MCPHandler, when set, is mounted at /mcp.
	MCPHandler http.Handler
}
