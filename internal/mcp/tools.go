package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/history"
)

// handleRun implements the run tool.
func (s *Server) handleRun(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RunInput,
) (*mcp.CallToolResult, RunOutput, error) {
	opts := application.RunOptions{
		ConfigPath: coalesce(input.ConfigPath, s.opts.ConfigPath),
		Output:     application.OutputJSON,
		RunID:      input.RunID,
		Commit:     input.Commit,
		Branch:     input.Branch,
	}
	if input.Record {
		opts.Record = true
		opts.Store = &history.FileStore{Path: s.opts.HistoryPath}
	}

	report, err := s.svc.RunReport(ctx, opts)

	output := RunOutput{
		Passed:     report.Passed,
		Percent:    report.Percent,
		Incomplete: report.Incomplete,
		Missing:    report.Missing,
		Outcomes:   report.Outcomes,
	}
	if err != nil {
		output.Passed = false
		output.Error = err.Error()
	}
	output.Summary = runSummary(report, err)

	return nil, output, nil
}

// handleVerifyDocs implements the verify_docs tool.
func (s *Server) handleVerifyDocs(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input VerifyDocsInput,
) (*mcp.CallToolResult, VerifyDocsOutput, error) {
	result, err := s.svc.VerifyDocs(ctx, application.VerifyOptions{
		ConfigPath: coalesce(input.ConfigPath, s.opts.ConfigPath),
		Output:     application.OutputJSON,
	})

	output := VerifyDocsOutput{
		Passed:     result.Passed(),
		DocBuildOK: result.DocBuildOK,
		BuildError: result.BuildErr,
		Snippets:   result.Snippets,
	}
	if err != nil {
		output.Passed = false
		output.Error = err.Error()
	}
	output.Summary = verifySummary(result, err)

	return nil, output, nil
}

// runSummary creates a human-readable summary from the aggregate report.
func runSummary(report domain.AggregateReport, err error) string {
	if err != nil {
		return fmt.Sprintf("ERROR | %s", err.Error())
	}

	status := "PASS"
	if !report.Passed {
		status = "FAIL"
	}
	summary := fmt.Sprintf("%s | %.1f%% union coverage | %d/%d cells reported",
		status, report.Percent, report.Received, report.Expected)
	if failed := report.FailedCells(); len(failed) > 0 {
		summary += fmt.Sprintf(" | %d failing", len(failed))
	}
	return summary
}

// verifySummary creates a human-readable summary from the verification.
func verifySummary(result domain.VerificationResult, err error) string {
	if err != nil {
		return fmt.Sprintf("ERROR | %s", err.Error())
	}
	if !result.DocBuildOK {
		return "FAIL | documentation build failed, snippets skipped"
	}
	failed := result.FailedSnippets()
	if len(failed) == 0 {
		return fmt.Sprintf("PASS | build ok | %d snippets passing", len(result.Snippets))
	}
	return fmt.Sprintf("FAIL | build ok | %d/%d snippets failing", len(failed), len(result.Snippets))
}
