// Package docs drives the documentation toolchain: a sphinx build of
// the source tree, then example snippets executed against the built
// output. A failed build short-circuits snippet checking entirely.
package docs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/pathutil"
)

type Builder struct {
	// Interpreter runs snippet scripts. Defaults to python3.
	Interpreter string
	// Exec overrides command execution (for testing). Returns combined
	// stdout and stderr.
	Exec func(ctx context.Context, dir string, name string, args []string) (string, error)
}

// Build renders the documentation source tree with sphinx. Warnings are
// promoted to errors so a drifting doc tree fails loudly.
func (b Builder) Build(ctx context.Context, source, out string) error {
	if !pathutil.IsPathSafe(source) || !pathutil.IsPathSafe(out) {
		return fmt.Errorf("unsafe doc path: %q -> %q", source, out)
	}
	args := []string{"-m", "sphinx", "-W", "-b", "html", source, out}
	if _, err := b.run(ctx, "", b.interpreter(), args); err != nil {
		return fmt.Errorf("sphinx build: %w", err)
	}
	return nil
}

// RunSnippet executes one example script against the built tree and
// returns its combined output. The caller collects failures across all
// snippets rather than stopping at the first.
func (b Builder) RunSnippet(ctx context.Context, snippet application.SnippetSpec, builtDir string) (string, error) {
	if !pathutil.IsPathSafe(snippet.Path) {
		return "", fmt.Errorf("unsafe snippet path: %q", snippet.Path)
	}
	out, err := b.run(ctx, builtDir, b.interpreter(), []string{snippet.Path})
	if err != nil {
		return out, fmt.Errorf("snippet %s: %w", snippet.Name, err)
	}
	return out, nil
}

func (b Builder) interpreter() string {
	if b.Interpreter == "" {
		return "python3"
	}
	return b.Interpreter
}

func (b Builder) run(ctx context.Context, dir, name string, args []string) (string, error) {
	execFn := b.Exec
	if execFn == nil {
		execFn = runCommand
	}
	return execFn(ctx, dir, name, args)
}

func runCommand(ctx context.Context, dir, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}
