// Package pip installs dependencies into a cell's virtualenv. Registry
// specs install published versions matching a constraint; vcs specs fetch
// and build from a branch, tag, or commit.
package pip

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

type Installer struct {
	// Exec overrides command execution (for testing).
	Exec func(ctx context.Context, dir string, name string, args []string) error
}

// Install resolves and installs one dependency. Specs install in the
// order the cell declares them; the executor fails the whole cell on the
// first error rather than attempting partial installs.
func (i Installer) Install(ctx context.Context, env application.Environment, spec domain.DependencySpec) error {
	args := []string{"-m", "pip", "install", "--no-input", spec.Spec()}
	if err := i.run(ctx, env.Dir, env.Interpreter, args); err != nil {
		return fmt.Errorf("pip install %s: %w", spec, err)
	}
	return nil
}

// InstallSubject installs the project under test in editable (live) mode
// with its test extras, so coverage instrumentation maps back to source.
func (i Installer) InstallSubject(ctx context.Context, env application.Environment, subject application.SubjectConfig) error {
	path := subject.Path
	if path == "" {
		path = "."
	}
	args := []string{"-m", "pip", "install", "--no-input", "-e", path + "[tests]"}
	if err := i.run(ctx, env.Dir, env.Interpreter, args); err != nil {
		return fmt.Errorf("pip install -e %s: %w", path, err)
	}
	return nil
}

func (i Installer) run(ctx context.Context, dir, name string, args []string) error {
	execFn := i.Exec
	if execFn == nil {
		execFn = runCommand
	}
	return execFn(ctx, dir, name, args)
}

func runCommand(ctx context.Context, dir, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
