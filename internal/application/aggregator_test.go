package application

import (
	"testing"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

func twoCells() []domain.Cell {
	return []domain.Cell{
		{OS: domain.OSLinux, Runtime: "3.10"},
		{OS: domain.OSLinux, Runtime: "3.12"},
	}
}

// Disjoint line sets: artifact a covers 8 of 10 lines, artifact b covers
// a different 3 of the same 10. Union coverage must reach at least the
// larger share, never the average.
func disjointParser() fakeParser {
	a := domain.FileCoverage{}
	b := domain.FileCoverage{}
	for line := 1; line <= 10; line++ {
		a[line] = line <= 8
		b[line] = line == 9
	}
	b[10] = true
	b[9] = true
	return fakeParser{profiles: map[string]domain.Profile{
		"a.lcov": {"src/circuit.py": a},
		"b.lcov": {"src/circuit.py": b},
	}}
}

func result(cell domain.Cell, artifact string) domain.JobResult {
	return domain.JobResult{
		Cell:     cell,
		State:    domain.StateReported,
		Status:   domain.ExitSuccess,
		Artifact: artifact,
	}
}

func TestIngestIdempotent(t *testing.T) {
	cells := twoCells()
	agg := NewAggregator(cells, disjointParser())

	r := result(cells[0], "a.lcov")
	if err := agg.Ingest(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := agg.Profile().Overall()
	if err := agg.Ingest(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := agg.Profile().Overall()
	if before != after {
		t.Fatalf("re-ingesting the same artifact changed counts: %+v vs %+v", before, after)
	}
}

func TestIngestOrderIrrelevant(t *testing.T) {
	cells := twoCells()

	forward := NewAggregator(cells, disjointParser())
	_ = forward.Ingest(result(cells[0], "a.lcov"))
	_ = forward.Ingest(result(cells[1], "b.lcov"))

	backward := NewAggregator(cells, disjointParser())
	_ = backward.Ingest(result(cells[1], "b.lcov"))
	_ = backward.Ingest(result(cells[0], "a.lcov"))

	if forward.Finalize().Percent != backward.Finalize().Percent {
		t.Fatalf("ingest order changed the aggregate")
	}
}

func TestFinalizeUnionNotAverage(t *testing.T) {
	cells := twoCells()
	agg := NewAggregator(cells, disjointParser())
	_ = agg.Ingest(result(cells[0], "a.lcov"))
	_ = agg.Ingest(result(cells[1], "b.lcov"))

	report := agg.Finalize()
	if report.Incomplete {
		t.Fatalf("all cells reported; report must be complete")
	}
	if report.Percent < 80 {
		t.Fatalf("expected union coverage >= 80%%, got %.1f%%", report.Percent)
	}
	if !report.Passed {
		t.Fatalf("expected passing report")
	}
}

func TestFinalizeEarlyIsIncomplete(t *testing.T) {
	cells := []domain.Cell{
		{OS: domain.OSLinux, Runtime: "3.10"},
		{OS: domain.OSLinux, Runtime: "3.11"},
		{OS: domain.OSLinux, Runtime: "3.12"},
	}
	agg := NewAggregator(cells, disjointParser())
	_ = agg.Ingest(result(cells[0], "a.lcov"))
	_ = agg.Ingest(result(cells[2], "b.lcov"))

	report := agg.Finalize()
	if !report.Incomplete {
		t.Fatalf("expected incomplete report")
	}
	if len(report.Missing) != 1 || report.Missing[0] != cells[1].ID() {
		t.Fatalf("missing cell not identified: %v", report.Missing)
	}
	if report.Passed {
		t.Fatalf("incomplete reports never pass")
	}
}

func TestFinalizeTransitionsOnce(t *testing.T) {
	cells := twoCells()
	agg := NewAggregator(cells, disjointParser())
	_ = agg.Ingest(result(cells[0], "a.lcov"))

	first := agg.Finalize()
	// A late arrival after finalize must not change the report.
	_ = agg.Ingest(result(cells[1], "b.lcov"))
	second := agg.Finalize()

	if !second.Incomplete || second.Received != first.Received {
		t.Fatalf("finalized report changed after late ingest")
	}
}

func TestIngestFailedCellWithoutArtifact(t *testing.T) {
	cells := twoCells()
	agg := NewAggregator(cells, disjointParser())
	_ = agg.Ingest(domain.JobResult{
		Cell:   cells[0],
		State:  domain.StateFailed,
		Status: domain.ExitFailure,
		Err:    &domain.DependencyError{Cell: cells[0].ID(), Dep: "numpy"},
	})
	_ = agg.Ingest(result(cells[1], "b.lcov"))

	report := agg.Finalize()
	if report.Incomplete {
		t.Fatalf("failed cells still count as reported")
	}
	if report.Passed {
		t.Fatalf("a failed cell fails the aggregate")
	}
	failed := report.FailedCells()
	if len(failed) != 1 || failed[0].Cell != cells[0].ID() {
		t.Fatalf("failing cell not itemized: %+v", failed)
	}
}

func TestIngestUnreadableArtifact(t *testing.T) {
	cells := twoCells()
	agg := NewAggregator(cells, fakeParser{profiles: map[string]domain.Profile{}})
	err := agg.Ingest(result(cells[0], "missing.lcov"))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	report := agg.Finalize()
	if report.Outcomes[0].Status != domain.ExitFailure {
		t.Fatalf("unreadable artifact must fail the cell outcome")
	}
}
