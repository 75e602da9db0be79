package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the application service with MCP protocol handling.
type Server struct {
	svc  Service
	opts Options
}

// NewServer creates a new MCP server wrapping the given service.
func NewServer(svc Service, opts Options) *Server {
	defaults := DefaultOptions()
	if opts.ConfigPath == "" {
		opts.ConfigPath = defaults.ConfigPath
	}
	if opts.HistoryPath == "" {
		opts.HistoryPath = defaults.HistoryPath
	}
	if opts.Version == "" {
		opts.Version = defaults.Version
	}

	return &Server{
		svc:  svc,
		opts: opts,
	}
}

// Serve starts the MCP server and blocks until the context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "matrixctl",
			Version: s.opts.Version,
		},
		&mcp.ServerOptions{
			HasTools:     true,
			HasResources: true,
		},
	)

	s.registerTools(server)
	s.registerResources(server)

	transport := &mcp.StdioTransport{}
	if err := server.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}

	return nil
}

// registerTools adds all tool handlers to the server.
func (s *Server) registerTools(server *mcp.Server) {
	// Run tool - executes the full matrix and aggregates coverage
	mcp.AddTool(server, &mcp.Tool{
		Name:        "run",
		Description: "Expand the build matrix, run every cell's test suite with coverage, and return the aggregated report.",
	}, s.handleRun)

	// Verify docs tool - builds documentation and checks snippets
	mcp.AddTool(server, &mcp.Tool{
		Name:        "verify_docs",
		Description: "Build the documentation tree and execute its example snippets. A failed build skips the snippets.",
	}, s.handleVerifyDocs)
}

// registerResources adds all resource handlers to the server.
func (s *Server) registerResources(server *mcp.Server) {
	// Cells resource
	server.AddResource(&mcp.Resource{
		URI:         "matrixctl://cells",
		Name:        "Matrix Cells",
		Description: "The expanded matrix cells in their stable order, without running anything",
		MIMEType:    "application/json",
	}, s.handleCellsResource)

	// History resource
	server.AddResource(&mcp.Resource{
		URI:         "matrixctl://history",
		Name:        "Run History",
		Description: "Recorded matrix run outcomes over time",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	// Config resource
	server.AddResource(&mcp.Resource{
		URI:         "matrixctl://config",
		Name:        "Current Configuration",
		Description: "Returns the current matrixctl configuration",
		MIMEType:    "application/json",
	}, s.handleConfigResource)
}
