package domain

import "fmt"

// JobState tracks a Job Executor through its steps. Any failure moves the
// job directly to StateFailed; steps are never silently skipped.
type JobState string

const (
	StateNotStarted            JobState = "not-started"
	StateProvisioned           JobState = "provisioned"
	StateDependenciesInstalled JobState = "dependencies-installed"
	StateTested                JobState = "tested"
	StateReported              JobState = "reported"
	StateFailed                JobState = "failed"
)

// jobTransitions lists the forward edges of the job state machine.
var jobTransitions = map[JobState]JobState{
	StateNotStarted:            StateProvisioned,
	StateProvisioned:           StateDependenciesInstalled,
	StateDependenciesInstalled: StateTested,
	StateTested:                StateReported,
}

// CanTransition reports whether from → to is a legal state change.
// StateFailed is reachable from every non-terminal state.
func CanTransition(from, to JobState) bool {
	if from == StateReported || from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	return jobTransitions[from] == to
}

// ExitStatus is the outcome of a completed job. Test assertion failures
// are carried here as data, not as errors.
type ExitStatus string

const (
	ExitSuccess ExitStatus = "success"
	ExitFailure ExitStatus = "failure"
)

// TestResult is one test case outcome from the runner.
type TestResult struct {
	Name   string
	Passed bool
}

// JobResult is created once per cell when its executor completes and is
// immutable thereafter. The aggregator consumes each result exactly once.
type JobResult struct {
	Cell     Cell
	State    JobState
	Status   ExitStatus
	Tests    []TestResult
	Artifact string // coverage artifact reference; empty if none was produced
	Err      error  // cell-local failure, nil for test-level failures
}

// Failed reports whether the job ended in a cell-local failure or with
// failing tests.
func (r JobResult) Failed() bool {
	return r.Status == ExitFailure || r.State == StateFailed
}

// FailedTests returns the names of tests that did not pass.
func (r JobResult) FailedTests() []string {
	var names []string
	for _, t := range r.Tests {
		if !t.Passed {
			names = append(names, t.Name)
		}
	}
	return names
}

// Summary returns a one-line description of the result.
func (r JobResult) Summary() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Cell.ID(), r.Err)
	}
	if r.Status == ExitFailure {
		return fmt.Sprintf("%s: %d test(s) failed", r.Cell.ID(), len(r.FailedTests()))
	}
	return r.Cell.ID() + ": ok"
}
