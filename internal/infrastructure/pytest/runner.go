// Package pytest runs the subject's test suite with coverage
// instrumentation and collects the artifacts the aggregator consumes.
package pytest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/junit"
)

// Exit codes pytest distinguishes: 0 means all tests passed and 1 means
// assertion failures. Anything else is a crash, not a test outcome.
const (
	exitAllPassed   = 0
	exitTestsFailed = 1
)

type Runner struct {
	// Exec overrides command execution (for testing). Returns the process
	// exit code.
	Exec func(ctx context.Context, dir string, name string, args []string) (int, error)
}

// Execute runs pytest inside the cell's environment. Assertion failures
// come back as data on the TestRun; an error return means the runner
// itself crashed. The LCOV artifact reference is returned even on a
// failing run, and left empty when the crash happened before coverage
// was written.
func (r Runner) Execute(ctx context.Context, env application.Environment, opts application.TestOptions) (application.TestRun, error) {
	artifact := filepath.Join(env.Dir, "coverage.lcov")
	junitPath := filepath.Join(env.Dir, "junit.xml")

	args := []string{"-m", "pytest",
		"--cov=" + opts.CoverageTarget,
		"--cov-report=lcov:" + artifact,
		"--junitxml=" + junitPath,
	}
	if opts.ReportMode == application.ReportImmediate {
		args = append(args, "--cov-report=term")
	}
	if opts.StrictMarkers {
		args = append(args, "--strict-markers")
	}
	args = append(args, opts.Args...)

	execFn := r.Exec
	if execFn == nil {
		execFn = runCommand
	}
	code, err := execFn(ctx, env.Dir, env.Interpreter, args)
	if err != nil {
		return application.TestRun{Artifact: existingPath(artifact)}, fmt.Errorf("pytest: %w", err)
	}

	switch code {
	case exitAllPassed, exitTestsFailed:
	default:
		return application.TestRun{Artifact: existingPath(artifact)}, fmt.Errorf("pytest exited %d", code)
	}

	run := application.TestRun{
		Passed:   code == exitAllPassed,
		Artifact: existingPath(artifact),
	}
	tests, err := junit.ParseFile(junitPath)
	if err == nil {
		run.Tests = tests
	}
	return run, nil
}

func runCommand(ctx context.Context, dir, name string, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// existingPath returns path if the file exists, otherwise empty. A
// crashed run may or may not have written its artifact.
func existingPath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
