package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/logsearch/internal/schema"
	"github.com/bull/logsearch/internal/storage"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	cfg    *Config
}

// Config holds server dependencies.
type Config struct {
	IndexDir string
	Schema   *schema.Schema
	Logger   *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	if cfg.Schema == nil {
		cfg.Schema = schema.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	impl := &mcp.Implementation{
		Name:    "logsearch",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_logs",
		Description: "Search locally indexed AI coding assistant logs (Claude Code, Cline, Cursor and others) by text or regex, with optional tool, kind, category, severity, project, file and date filters. Results are ranked by relevance.",
	}, makeSearchHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report the state of the log index: document and location counts, sizes, last indexing time and per-tool location counts.",
	}, makeStatusHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_locations",
		Description: "List the log files recorded in the index, optionally only those of one tool.",
	}, makeListHandler(cfg))

	return &Server{server: server, cfg: cfg}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Health opens the index read-only and checks it answers queries.
func (s *Server) Health(ctx context.Context) error {
	ix, err := storage.OpenReader(ctx, s.cfg.IndexDir, s.cfg.Schema)
	if err != nil {
		return err
	}
	defer ix.Close()
	return ix.Health(ctx)
}
