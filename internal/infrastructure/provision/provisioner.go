// Package provision acquires isolated per-cell execution environments on
// the local host: a scratch directory plus a virtualenv created for the
// cell's interpreter version.
package provision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

type Provisioner struct {
	// Root is the parent directory for cell workspaces. Defaults to the
	// system temp directory.
	Root string
	// Exec overrides command execution (for testing).
	Exec func(ctx context.Context, dir string, name string, args []string) error
	// LookPath overrides interpreter lookup (for testing).
	LookPath func(name string) (string, error)
}

// Acquire creates the environment for one cell. The host OS must match
// the cell's OS axis; cross-OS cells belong to a remote scheduler, not
// this local provisioner. This is the natural place for a timeout, via
// the caller's context deadline.
func (p Provisioner) Acquire(ctx context.Context, cell domain.Cell) (application.Environment, error) {
	if hostOS() != cell.OS {
		return application.Environment{}, fmt.Errorf("cell wants %s, host is %s", cell.OS, hostOS())
	}

	interpreter, err := p.findInterpreter(cell.Runtime)
	if err != nil {
		return application.Environment{}, err
	}

	root := p.Root
	if root == "" {
		root = os.TempDir()
	}
	dir, err := os.MkdirTemp(root, "matrixctl-"+sanitize(cell.ID())+"-")
	if err != nil {
		return application.Environment{}, err
	}

	venv := filepath.Join(dir, "venv")
	if err := p.run(ctx, dir, interpreter, []string{"-m", "venv", venv}); err != nil {
		_ = os.RemoveAll(dir)
		return application.Environment{}, fmt.Errorf("create venv: %w", err)
	}

	return application.Environment{
		Dir:         dir,
		Interpreter: venvPython(venv),
	}, nil
}

// Release removes the cell workspace. Partially installed environments
// are never reused across attempts.
func (p Provisioner) Release(env application.Environment) error {
	if env.Dir == "" {
		return nil
	}
	return os.RemoveAll(env.Dir)
}

func (p Provisioner) findInterpreter(version string) (string, error) {
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	candidates := []string{"python" + version, "python3." + strings.TrimPrefix(version, "3."), "python3"}
	for _, name := range candidates {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no interpreter for runtime %s", version)
}

func (p Provisioner) run(ctx context.Context, dir, name string, args []string) error {
	execFn := p.Exec
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

func hostOS() domain.OS {
	switch runtime.GOOS {
	case "darwin":
		return domain.OSMacOS
	case "windows":
		return domain.OSWindows
	default:
		return domain.OSLinux
	}
}

func venvPython(venv string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venv, "Scripts", "python.exe")
	}
	return filepath.Join(venv, "bin", "python")
}

func sanitize(id string) string {
	return strings.NewReplacer("/", "-", "=", "", ">", "", "<", "", "@", "-").Replace(id)
}
