package domain

import (
	"errors"
	"fmt"
)

// ConfigError marks a malformed matrix configuration. It is fatal and
// aborts a run before any job starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// ProvisionError marks a failure to acquire an isolated execution
// environment. It is fatal to one cell only.
type ProvisionError struct {
	Cell string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s: %v", e.Cell, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// DependencyError marks a failed dependency resolution or install for one
// cell. The whole cell fails; no partial installs are attempted.
type DependencyError struct {
	Cell string
	Dep  string
	Err  error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s in %s: %v", e.Dep, e.Cell, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// InstallError marks a failure to install the subject project itself.
type InstallError struct {
	Cell string
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install subject in %s: %v", e.Cell, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// BuildError marks a failed documentation build. It is fatal to the
// verifier run and skips all snippet checks.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("documentation build: %v", e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// IsCellLocal reports whether the error is confined to a single matrix
// cell. Cell-local errors never cross cell boundaries.
func IsCellLocal(err error) bool {
	var pe *ProvisionError
	var de *DependencyError
	var ie *InstallError
	return errors.As(err, &pe) || errors.As(err, &de) || errors.As(err, &ie)
}
