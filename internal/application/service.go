package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

// Service wires the orchestrator's ports together. All collaborators are
// injected; infrastructure adapters live under internal/infrastructure.
type Service struct {
	ConfigLoader ConfigLoader
	Provisioner  Provisioner
	Installer    Installer
	Runner       TestRunner
	Parser       ArtifactParser
	DocBuilder   DocBuilder
	Submitter    Submitter
	Reporter     Reporter
	Out          io.Writer

	now func() time.Time
	// newArtifactDir overrides run-scoped artifact directory creation
	// (tests). An empty directory disables the copy-out step.
	newArtifactDir func() (string, error)
}

// Run expands the matrix, executes every cell in parallel, aggregates
// coverage, optionally mirrors artifacts to the remote sink, and writes
// the finalized report. A failing cell never cancels its siblings; the
// returned error reflects the overall pass/fail state.
func (s *Service) Run(ctx context.Context, opts RunOptions) error {
	report, err := s.RunReport(ctx, opts)
	if err != nil {
		return err
	}
	if err := s.Reporter.Write(s.Out, report, opts.Output); err != nil {
		return err
	}
	if !report.Passed {
		return fmt.Errorf("matrix run failed")
	}
	return nil
}

// RunReport is Run without the rendering step, for callers that consume
// the report directly (MCP, watch mode).
func (s *Service) RunReport(ctx context.Context, opts RunOptions) (domain.AggregateReport, error) {
	cfg, err := s.loadConfig(opts.ConfigPath)
	if err != nil {
		return domain.AggregateReport{}, err
	}
	cells, err := cfg.Matrix.Expand()
	if err != nil {
		// Malformed matrix aborts before any job starts.
		return domain.AggregateReport{}, err
	}

	// Artifacts are copied out of each environment before release into a
	// run-scoped directory, so they are still readable at ingest and
	// submit time. The directory is kept for post-run inspection.
	mkArtifactDir := s.newArtifactDir
	if mkArtifactDir == nil {
		mkArtifactDir = func() (string, error) { return os.MkdirTemp("", "matrixctl-artifacts-") }
	}
	artifactDir, err := mkArtifactDir()
	if err != nil {
		return domain.AggregateReport{}, fmt.Errorf("create artifact dir: %w", err)
	}

	executor := &Executor{
		Provisioner: s.Provisioner,
		Installer:   s.Installer,
		Runner:      s.Runner,
		Subject:     cfg.Subject,
		Test:        cfg.Test,
		ArtifactDir: artifactDir,
	}
	aggregator := NewAggregator(cells, s.Parser)

	submitter := s.Submitter
	if opts.Submitter != nil {
		submitter = opts.Submitter
	}

	// One goroutine per cell, results funneled through a channel sized to
	// the cell count so no sender blocks. The WaitGroup is the barrier the
	// finalize step waits behind.
	results := make(chan domain.JobResult, len(cells))
	var wg sync.WaitGroup
	for _, cell := range cells {
		wg.Add(1)
		go func(cell domain.Cell) {
			defer wg.Done()
			results <- executor.Run(ctx, cell)
		}(cell)
	}
	wg.Wait()
	close(results)

	for result := range results {
		// Parse errors are already reflected in the cell outcome.
		_ = aggregator.Ingest(result)
		if submitter != nil && cfg.Submit.Enabled && result.Artifact != "" {
			if err := submitter.Submit(ctx, result.Artifact, true); err != nil {
				fmt.Fprintf(s.Out, "warning: submit %s: %v\n", result.Cell.ID(), err)
			}
		}
	}

	report := aggregator.Finalize()

	if submitter != nil && cfg.Submit.Enabled {
		if err := submitter.Finalize(ctx, opts.RunID); err != nil {
			fmt.Fprintf(s.Out, "warning: finalize run %s: %v\n", opts.RunID, err)
		}
	}

	if opts.Record && opts.Store != nil {
		if err := opts.Store.Append(s.historyEntry(report, opts)); err != nil {
			return report, fmt.Errorf("record history: %w", err)
		}
	}

	return report, nil
}

// Expand resolves the configured matrix into its cells without running
// anything. Cell indices are reproducible across invocations.
func (s *Service) Expand(ctx context.Context, opts ExpandOptions) ([]domain.Cell, error) {
	cfg, err := s.loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return cfg.Matrix.Expand()
}

// History returns the most recent run entries, newest last.
func (s *Service) History(ctx context.Context, opts HistoryOptions, store HistoryStore) ([]domain.HistoryEntry, error) {
	h, err := store.Load()
	if err != nil {
		return nil, err
	}
	entries := h.Entries
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}
	return entries, nil
}

// Watch reruns the matrix whenever the subject's sources change. The
// first run happens immediately; later runs are debounced by the watcher.
func (s *Service) Watch(ctx context.Context, opts WatchOptions, watcher FileWatcher, callback WatchCallback) error {
	cfg, err := s.loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	root := cfg.Subject.Path
	if root == "" {
		root = "."
	}
	if err := watcher.WatchDir(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	runNumber := 0
	runOnce := func() {
		runNumber++
		runErr := s.Run(ctx, RunOptions{ConfigPath: opts.ConfigPath, Output: opts.Output})
		if callback != nil {
			callback(runNumber, runErr)
		}
	}

	runOnce()
	events := watcher.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			runOnce()
		}
	}
}

func (s *Service) loadConfig(path string) (Config, error) {
	exists, err := s.ConfigLoader.Exists(path)
	if err != nil {
		return Config{}, err
	}
	if !exists {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	return s.ConfigLoader.Load(path)
}

func (s *Service) historyEntry(report domain.AggregateReport, opts RunOptions) domain.HistoryEntry {
	clock := s.now
	if clock == nil {
		clock = time.Now
	}
	entry := domain.HistoryEntry{
		Timestamp:  clock(),
		Commit:     opts.Commit,
		Branch:     opts.Branch,
		Overall:    report.Percent,
		Incomplete: report.Incomplete,
		Cells:      make(map[string]domain.CellEntry, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		entry.Cells[o.Cell] = domain.CellEntry{Cell: o.Cell, Status: o.Status}
	}
	return entry
}
