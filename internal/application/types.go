package application

import (
	"context"
	"errors"
	"io"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

var ErrConfigNotFound = errors.New("config not found")

// CoverageReportMode controls when the test runner renders its coverage
// report: immediately after the run, or deferred to aggregation time.
type CoverageReportMode string

const (
	ReportImmediate CoverageReportMode = "immediate"
	ReportDeferred  CoverageReportMode = "deferred"
)

// Config represents validated, application-ready configuration.
type Config struct {
	Subject SubjectConfig
	Matrix  domain.Matrix
	Test    TestConfig
	Docs    DocsConfig
	Submit  SubmitConfig
}

// SubjectConfig identifies the project under test.
type SubjectConfig struct {
	Name string // import name used as the coverage target
	Path string // project root; installed in live mode so coverage maps to source
}

// TestConfig configures the test runner boundary.
type TestConfig struct {
	StrictMarkers bool
	ReportMode    CoverageReportMode
	Args          []string // extra arguments passed through to the runner
}

// DocsConfig configures the documentation verifier.
type DocsConfig struct {
	Source   string // documentation source tree
	BuildDir string // output directory for the built tree
	Snippets []SnippetSpec
}

// SnippetSpec names one doctest or example script, in declaration order.
type SnippetSpec struct {
	Name string
	Path string
}

// SubmitConfig configures the remote coverage submission sink.
type SubmitConfig struct {
	Enabled  bool
	URL      string
	TokenEnv string // environment variable holding the auth token
}

// Environment is an isolated execution environment acquired for one cell.
type Environment struct {
	Dir         string // per-cell working directory, removed on release
	Interpreter string // runtime executable matching the cell's version
}

type ConfigLoader interface {
	Load(path string) (Config, error)
	Exists(path string) (bool, error)
}

// Provisioner acquires isolated execution environments. Acquire failures
// are fatal to the cell and wrapped in ProvisionError by the executor.
type Provisioner interface {
	Acquire(ctx context.Context, cell domain.Cell) (Environment, error)
	Release(env Environment) error
}

// Installer resolves and installs dependencies into an environment.
type Installer interface {
	// Install installs one dependency spec. Registry sources install a
	// published version matching the constraint; vcs sources fetch and
	// build from the named ref.
	Install(ctx context.Context, env Environment, spec domain.DependencySpec) error
	// InstallSubject installs the project under test in live mode so the
	// coverage instrumentation maps back to source.
	InstallSubject(ctx context.Context, env Environment, subject SubjectConfig) error
}

// TestOptions carries the runner configuration recognized at the boundary.
type TestOptions struct {
	StrictMarkers  bool
	CoverageTarget string
	ReportMode     CoverageReportMode
	Args           []string
}

// TestRun is the runner's outcome. Assertion failures arrive as data in
// Tests/Passed, never as an error; Artifact is empty when the runner
// crashed before writing one.
type TestRun struct {
	Tests    []domain.TestResult
	Passed   bool
	Artifact string
}

// TestRunner executes the subject's suite with coverage instrumentation.
type TestRunner interface {
	Execute(ctx context.Context, env Environment, opts TestOptions) (TestRun, error)
}

// ArtifactParser reads a coverage artifact into a line-level profile.
type ArtifactParser interface {
	Parse(path string) (domain.Profile, error)
}

// DocBuilder is the documentation build tool boundary.
type DocBuilder interface {
	// Build renders the source tree; failures abort snippet checking.
	Build(ctx context.Context, source, out string) error
	// RunSnippet executes one snippet against the built tree and returns
	// its combined output.
	RunSnippet(ctx context.Context, snippet SnippetSpec, builtDir string) (string, error)
}

// Submitter is a client for the remote coverage submission service. The
// local aggregator remains authoritative; submission is best-effort
// mirroring of the per-job artifacts plus the finalize barrier.
type Submitter interface {
	Submit(ctx context.Context, artifact string, parallel bool) error
	Finalize(ctx context.Context, runID string) error
}

type Reporter interface {
	Write(w io.Writer, report domain.AggregateReport, format OutputFormat) error
	WriteVerification(w io.Writer, result domain.VerificationResult, format OutputFormat) error
}

type HistoryStore interface {
	Load() (domain.History, error)
	Save(h domain.History) error
	Append(entry domain.HistoryEntry) error
}

// FileWatcher provides file change notifications for watch mode.
type FileWatcher interface {
	WatchDir(root string) error
	Events(ctx context.Context) <-chan struct{}
	Close() error
}

type RunOptions struct {
	ConfigPath string
	Output     OutputFormat
	RunID      string
	Record     bool
	Commit     string
	Branch     string
	Store      HistoryStore
	// Submitter overrides the service-level submitter, for callers that
	// construct one from the loaded submit config.
	Submitter Submitter
}

type ExpandOptions struct {
	ConfigPath string
}

type VerifyOptions struct {
	ConfigPath string
	Output     OutputFormat
}

type HistoryOptions struct {
	Limit int
}

// WatchOptions configures watch mode behavior.
type WatchOptions struct {
	ConfigPath string
	Output     OutputFormat
}

// WatchCallback observes each completed watch-mode run.
type WatchCallback func(runNumber int, err error)
