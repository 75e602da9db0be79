package domain

import (
	"fmt"
	"strings"
)

// OS identifies the operating system axis of a matrix cell.
type OS string

const (
	OSLinux   OS = "linux"
	OSMacOS   OS = "macos"
	OSWindows OS = "windows"
)

// ValidOS reports whether the value names a supported operating system.
func ValidOS(value OS) bool {
	switch value {
	case OSLinux, OSMacOS, OSWindows:
		return true
	}
	return false
}

// DependencySource distinguishes how a dependency is obtained.
type DependencySource string

const (
	// SourceRegistry installs a published version matching a constraint.
	SourceRegistry DependencySource = "registry"
	// SourceVCS fetches and builds from a named branch, tag, or ref.
	SourceVCS DependencySource = "vcs"
)

// DependencySpec pins one dependency of a matrix cell.
// Resolution is per cell; a failure never affects sibling cells.
type DependencySpec struct {
	Name       string
	Source     DependencySource
	Constraint string // registry version expression, e.g. "==1.26.4" or ">=2.0"
	RepoURL    string // vcs repository, e.g. "https://github.com/qutip/qutip"
	Ref        string // vcs branch, tag, or commit
}

// Spec returns the installable expression for this dependency.
func (d DependencySpec) Spec() string {
	if d.Source == SourceVCS {
		return fmt.Sprintf("git+%s@%s#egg=%s", d.RepoURL, d.Ref, d.Name)
	}
	return d.Name + d.Constraint
}

func (d DependencySpec) String() string {
	if d.Source == SourceVCS {
		return fmt.Sprintf("%s@%s", d.Name, d.Ref)
	}
	return d.Name + d.Constraint
}

// Cell is one fully resolved point of the build matrix.
// It is immutable once the matrix is expanded; identity is its axis values.
type Cell struct {
	OS      OS
	Runtime string // interpreter version, e.g. "3.11"
	Deps    []DependencySpec
}

// ID returns the stable identity of the cell, derived from its axis values.
// Two cells in one run never share an ID (expansion enforces uniqueness).
func (c Cell) ID() string {
	parts := make([]string, 0, 2+len(c.Deps))
	parts = append(parts, string(c.OS), c.Runtime)
	for _, d := range c.Deps {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "/")
}

// Matrix declares the axes of a build matrix plus explicit extra cells.
// Expansion order is deterministic: the cartesian product in declaration
// order (OS outermost, dependency sets innermost), then Include cells.
type Matrix struct {
	OS       []OS
	Runtimes []string
	DepSets  [][]DependencySpec
	Include  []Cell
}

// Expand produces the cells of the matrix. It is a pure function: no side
// effects, same output for the same input. A configuration that yields two
// cells with identical axis values is rejected with a ConfigError.
func (m Matrix) Expand() ([]Cell, error) {
	oses := m.OS
	if len(oses) == 0 {
		oses = []OS{OSLinux}
	}
	runtimes := m.Runtimes
	if len(runtimes) == 0 {
		return nil, &ConfigError{Reason: "matrix declares no runtime versions"}
	}
	depSets := m.DepSets
	if len(depSets) == 0 {
		depSets = [][]DependencySpec{nil}
	}

	for _, o := range oses {
		if !ValidOS(o) {
			return nil, &ConfigError{Reason: fmt.Sprintf("unknown os %q", o)}
		}
	}

	cells := make([]Cell, 0, len(oses)*len(runtimes)*len(depSets)+len(m.Include))
	for _, o := range oses {
		for _, rt := range runtimes {
			for _, deps := range depSets {
				cells = append(cells, Cell{OS: o, Runtime: rt, Deps: cloneDeps(deps)})
			}
		}
	}
	for _, c := range m.Include {
		if !ValidOS(c.OS) {
			return nil, &ConfigError{Reason: fmt.Sprintf("include cell has unknown os %q", c.OS)}
		}
		if c.Runtime == "" {
			return nil, &ConfigError{Reason: "include cell has no runtime version"}
		}
		cells = append(cells, Cell{OS: c.OS, Runtime: c.Runtime, Deps: cloneDeps(c.Deps)})
	}

	seen := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		id := c.ID()
		if _, dup := seen[id]; dup {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate matrix cell %s", id)}
		}
		seen[id] = struct{}{}
	}
	return cells, nil
}

func cloneDeps(deps []DependencySpec) []DependencySpec {
	if deps == nil {
		return nil
	}
	out := make([]DependencySpec, len(deps))
	copy(out, deps)
	return out
}
