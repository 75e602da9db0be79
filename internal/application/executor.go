package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

// Executor runs one matrix cell to completion. Cells share no mutable
// state; isolation is by construction through separate environments.
type Executor struct {
	Provisioner Provisioner
	Installer   Installer
	Runner      TestRunner
	Subject     SubjectConfig
	Test        TestConfig
	// ArtifactDir is a run-scoped directory that coverage artifacts are
	// copied into before the cell's environment is released. Artifacts
	// written inside the environment do not survive Release.
	ArtifactDir string
}

// Run drives the cell through the job state machine: NotStarted →
// Provisioned → DependenciesInstalled → Tested → Reported, with any step
// failure moving straight to Failed. Test assertion failures are carried
// in the result as data, never returned as an error.
func (e *Executor) Run(ctx context.Context, cell domain.Cell) (result domain.JobResult) {
	result = domain.JobResult{Cell: cell, State: domain.StateNotStarted}

	env, err := e.Provisioner.Acquire(ctx, cell)
	if err != nil {
		return fail(result, &domain.ProvisionError{Cell: cell.ID(), Err: err})
	}
	defer func() {
		if result.State == domain.StateFailed {
			// Partially installed environments are never reused.
			_ = e.Provisioner.Release(env)
		}
	}()
	result = advance(result, domain.StateProvisioned)

	for _, dep := range cell.Deps {
		if err := e.Installer.Install(ctx, env, dep); err != nil {
			return fail(result, &domain.DependencyError{Cell: cell.ID(), Dep: dep.Name, Err: err})
		}
	}
	if err := e.Installer.InstallSubject(ctx, env, e.Subject); err != nil {
		return fail(result, &domain.InstallError{Cell: cell.ID(), Err: err})
	}
	result = advance(result, domain.StateDependenciesInstalled)

	run, err := e.Runner.Execute(ctx, env, TestOptions{
		StrictMarkers:  e.Test.StrictMarkers,
		CoverageTarget: e.Subject.Name,
		ReportMode:     e.Test.ReportMode,
		Args:           e.Test.Args,
	})
	if err != nil {
		// Runner crash, distinct from test failures. Whatever artifact
		// made it to disk is still reported, copied out before the
		// deferred Release deletes the environment.
		if preserved, copyErr := e.preserveArtifact(cell, run.Artifact); copyErr == nil {
			result.Artifact = preserved
		}
		return fail(result, fmt.Errorf("test runner in %s: %w", cell.ID(), err))
	}
	result = advance(result, domain.StateTested)

	artifact, err := e.preserveArtifact(cell, run.Artifact)
	if err != nil {
		return fail(result, fmt.Errorf("preserve artifact for %s: %w", cell.ID(), err))
	}

	result.Tests = run.Tests
	result.Artifact = artifact
	result.Status = domain.ExitSuccess
	if !run.Passed {
		result.Status = domain.ExitFailure
	}
	result = advance(result, domain.StateReported)

	_ = e.Provisioner.Release(env)
	return result
}

// preserveArtifact copies the artifact out of the environment into the
// run-scoped artifact directory so it outlives Release. Without an
// ArtifactDir the artifact path passes through unchanged.
func (e *Executor) preserveArtifact(cell domain.Cell, src string) (string, error) {
	if e.ArtifactDir == "" || src == "" {
		return src, nil
	}
	data, err := os.ReadFile(src) // #nosec G304 - path comes from the run's own environment
	if err != nil {
		return "", err
	}
	dst := filepath.Join(e.ArtifactDir, artifactName(cell.ID())+filepath.Ext(src))
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return "", err
	}
	return dst, nil
}

func artifactName(cellID string) string {
	return strings.NewReplacer("/", "-", "=", "", ">", "", "<", "", "@", "-").Replace(cellID)
}

func advance(r domain.JobResult, to domain.JobState) domain.JobResult {
	if !domain.CanTransition(r.State, to) {
		panic(fmt.Sprintf("illegal job transition %s -> %s", r.State, to))
	}
	r.State = to
	return r
}

func fail(r domain.JobResult, err error) domain.JobResult {
	r.State = domain.StateFailed
	r.Status = domain.ExitFailure
	r.Err = err
	return r
}
