package domain

import (
	"math"
	"sort"
)

// CoverageStat summarizes covered vs instrumented lines.
type CoverageStat struct {
	Covered int
	Total   int
}

// Percent returns the coverage percentage as a raw float64.
func (c CoverageStat) Percent() float64 {
	if c.Total == 0 {
		return 0
	}
	return (float64(c.Covered) / float64(c.Total)) * 100
}

// PercentRounded returns the coverage percentage rounded to one decimal place.
func (c CoverageStat) PercentRounded() float64 {
	return Round1(c.Percent())
}

// IsEmpty returns true if there are no lines to cover.
func (c CoverageStat) IsEmpty() bool {
	return c.Total == 0
}

// FileCoverage maps instrumented line numbers to whether they were hit.
// A line present with value false is instrumented but uncovered.
type FileCoverage map[int]bool

// Stat derives covered/total counts from the line map.
func (f FileCoverage) Stat() CoverageStat {
	stat := CoverageStat{Total: len(f)}
	for _, hit := range f {
		if hit {
			stat.Covered++
		}
	}
	return stat
}

// Profile is the parsed content of one coverage artifact: per-file line
// coverage. Profiles from different jobs merge with set-union semantics.
type Profile map[string]FileCoverage

// Merge folds other into p. A line covered in either profile counts as
// covered; instrumented sets union. Merge is commutative and associative,
// and merging the same lines again never double-counts.
func (p Profile) Merge(other Profile) {
	for file, lines := range other {
		dst := p[file]
		if dst == nil {
			dst = make(FileCoverage, len(lines))
			p[file] = dst
		}
		for line, hit := range lines {
			dst[line] = dst[line] || hit
		}
	}
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for file, lines := range p {
		dup := make(FileCoverage, len(lines))
		for line, hit := range lines {
			dup[line] = hit
		}
		out[file] = dup
	}
	return out
}

// Overall sums line coverage across all files.
func (p Profile) Overall() CoverageStat {
	var stat CoverageStat
	for _, lines := range p {
		s := lines.Stat()
		stat.Covered += s.Covered
		stat.Total += s.Total
	}
	return stat
}

// Files returns the covered file paths in sorted order.
func (p Profile) Files() []string {
	files := make([]string, 0, len(p))
	for file := range p {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// CellOutcome records one cell's contribution to an aggregate report.
type CellOutcome struct {
	Cell     string     `json:"cell"`
	Status   ExitStatus `json:"status"`
	Artifact string     `json:"artifact,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// AggregateReport is the finalized union of all job outcomes. It is built
// by the aggregator and transitions to Finalized exactly once.
type AggregateReport struct {
	Outcomes   []CellOutcome `json:"outcomes"`
	Covered    int           `json:"covered"`
	Total      int           `json:"total"`
	Percent    float64       `json:"percent"`
	Expected   int           `json:"expected"`
	Received   int           `json:"received"`
	Incomplete bool          `json:"incomplete"`
	Missing    []string      `json:"missing,omitempty"`
	Passed     bool          `json:"passed"`
}

// FailedCells returns the outcomes that did not succeed.
func (r AggregateReport) FailedCells() []CellOutcome {
	var failed []CellOutcome
	for _, o := range r.Outcomes {
		if o.Status != ExitSuccess {
			failed = append(failed, o)
		}
	}
	return failed
}

// Round1 rounds a float64 to one decimal place. All user-facing coverage
// percentages go through this.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
