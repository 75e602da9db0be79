package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/config"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/history"
)

// handleCellsResource returns the expanded matrix cells.
func (s *Server) handleCellsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	cells, err := s.svc.Expand(ctx, application.ExpandOptions{
		ConfigPath: s.opts.ConfigPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expand matrix: %w", err)
	}

	ids := make([]string, len(cells))
	for i, cell := range cells {
		ids[i] = cell.ID()
	}
	return jsonResource(req, ids)
}

// handleHistoryResource returns recorded run outcomes.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	store := &history.FileStore{Path: s.opts.HistoryPath}

	entries, err := s.svc.History(ctx, application.HistoryOptions{}, store)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return jsonResource(req, entries)
}

// handleConfigResource returns the current configuration.
func (s *Server) handleConfigResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	cfg, err := config.Loader{}.Load(s.opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return jsonResource(req, cfg)
}

func jsonResource(req *mcp.ReadResourceRequest, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
