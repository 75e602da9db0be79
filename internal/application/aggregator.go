package application

import (
	"sort"
	"sync"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

// Aggregator collects per-job coverage artifacts and merges them with
// union-of-covered-lines semantics. It is the single synchronization point
// of a run: Ingest tolerates unordered, duplicate, and partial arrivals,
// and may race with Finalize.
type Aggregator struct {
	Parser ArtifactParser

	mu        sync.Mutex
	expected  []string
	arrived   map[string]domain.CellOutcome
	artifacts map[string]struct{}
	profile   domain.Profile
	finalized bool
	report    domain.AggregateReport
}

// NewAggregator creates an aggregator expecting one result per cell. The
// expected count is external scheduling knowledge injected up front.
func NewAggregator(cells []domain.Cell, parser ArtifactParser) *Aggregator {
	expected := make([]string, len(cells))
	for i, c := range cells {
		expected[i] = c.ID()
	}
	return &Aggregator{
		Parser:    parser,
		expected:  expected,
		arrived:   make(map[string]domain.CellOutcome, len(cells)),
		artifacts: make(map[string]struct{}),
		profile:   make(domain.Profile),
	}
}

// Ingest consumes one JobResult. Re-ingesting a result whose artifact
// reference was already merged is a no-op, which makes externally retried
// jobs safe. Parse failures degrade the cell to a failure outcome rather
// than poisoning the aggregate.
func (a *Aggregator) Ingest(result domain.JobResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := result.Cell.ID()
	if _, dup := a.arrived[id]; !dup {
		outcome := domain.CellOutcome{Cell: id, Status: result.Status, Artifact: result.Artifact}
		if result.Err != nil {
			outcome.Reason = result.Err.Error()
		} else if result.Status == domain.ExitFailure {
			outcome.Reason = "test failures"
		}
		a.arrived[id] = outcome
	}

	if result.Artifact == "" {
		return nil
	}
	if _, dup := a.artifacts[result.Artifact]; dup {
		return nil
	}

	profile, err := a.Parser.Parse(result.Artifact)
	if err != nil {
		outcome := a.arrived[id]
		outcome.Status = domain.ExitFailure
		outcome.Reason = "unreadable coverage artifact: " + err.Error()
		a.arrived[id] = outcome
		return err
	}
	a.artifacts[result.Artifact] = struct{}{}
	a.profile.Merge(profile)
	return nil
}

// Received returns how many distinct cells have reported.
func (a *Aggregator) Received() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.arrived)
}

// Finalize builds the aggregate report. Called before all expected cells
// have reported it flags the report Incomplete and names the missing
// cells instead of blocking. The report transitions to finalized exactly
// once; later calls return the same report.
func (a *Aggregator) Finalize() domain.AggregateReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return a.report
	}

	report := domain.AggregateReport{
		Expected: len(a.expected),
		Received: len(a.arrived),
	}
	for _, id := range a.expected {
		outcome, ok := a.arrived[id]
		if !ok {
			report.Missing = append(report.Missing, id)
			continue
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Cell < report.Outcomes[j].Cell
	})
	report.Incomplete = len(report.Missing) > 0

	stat := a.profile.Overall()
	report.Covered = stat.Covered
	report.Total = stat.Total
	report.Percent = stat.PercentRounded()

	report.Passed = !report.Incomplete
	for _, o := range report.Outcomes {
		if o.Status != domain.ExitSuccess {
			report.Passed = false
		}
	}

	a.finalized = true
	a.report = report
	return report
}

// Profile returns a copy of the merged coverage profile.
func (a *Aggregator) Profile() domain.Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile.Clone()
}
