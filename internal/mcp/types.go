// Package mcp provides the Model Context Protocol server for matrixctl.
package mcp

import (
	"context"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

// Service defines the application operations needed by MCP.
// This interface allows for easy mocking in tests.
type Service interface {
	// Tools (actions that may have side effects)
	RunReport(ctx context.Context, opts application.RunOptions) (domain.AggregateReport, error)
	VerifyDocs(ctx context.Context, opts application.VerifyOptions) (domain.VerificationResult, error)

	// Resources (read-only queries)
	Expand(ctx context.Context, opts application.ExpandOptions) ([]domain.Cell, error)
	History(ctx context.Context, opts application.HistoryOptions, store application.HistoryStore) ([]domain.HistoryEntry, error)
}

// Options holds MCP server configuration.
type Options struct {
	ConfigPath  string // Path to .matrixctl.yaml (default: ".matrixctl.yaml")
	HistoryPath string // Path to history file (default: ".matrixctl/history.json")
	Version     string
}

// DefaultOptions returns configuration with default values.
func DefaultOptions() Options {
	return Options{
		ConfigPath:  ".matrixctl.yaml",
		HistoryPath: ".matrixctl/history.json",
		Version:     "dev",
	}
}

// RunInput defines the input parameters for the run tool.
type RunInput struct {
	ConfigPath string `json:"configPath,omitempty" jsonschema:"description=Path to .matrixctl.yaml config file"`
	RunID      string `json:"runId,omitempty" jsonschema:"description=Identifier for the submission finalize call"`
	Record     bool   `json:"record,omitempty" jsonschema:"description=Record the run outcome to history"`
	Commit     string `json:"commit,omitempty" jsonschema:"description=Git commit SHA"`
	Branch     string `json:"branch,omitempty" jsonschema:"description=Git branch name"`
}

// VerifyDocsInput defines the input parameters for the verify_docs tool.
type VerifyDocsInput struct {
	ConfigPath string `json:"configPath,omitempty" jsonschema:"description=Path to .matrixctl.yaml config file"`
}

// RunOutput is the run tool's result.
type RunOutput struct {
	Passed     bool                 `json:"passed"`
	Summary    string               `json:"summary,omitempty"`
	Percent    float64              `json:"percent"`
	Incomplete bool                 `json:"incomplete,omitempty"`
	Missing    []string             `json:"missing,omitempty"`
	Outcomes   []domain.CellOutcome `json:"outcomes,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// VerifyDocsOutput is the verify_docs tool's result.
type VerifyDocsOutput struct {
	Passed     bool                   `json:"passed"`
	Summary    string                 `json:"summary,omitempty"`
	DocBuildOK bool                   `json:"docBuildOk"`
	BuildError string                 `json:"buildError,omitempty"`
	Snippets   []domain.SnippetResult `json:"snippets,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// coalesce returns value if non-empty, otherwise fallback.
func coalesce(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
