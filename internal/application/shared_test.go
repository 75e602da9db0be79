package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

type fakeLoader struct {
	cfg Config
	err error
}

func (l fakeLoader) Load(path string) (Config, error) { return l.cfg, l.err }
func (l fakeLoader) Exists(path string) (bool, error) { return true, nil }

type fakeProvisioner struct {
	mu       sync.Mutex
	acquired []string
	released []string
	failFor  map[string]error
}

func (p *fakeProvisioner) Acquire(ctx context.Context, cell domain.Cell) (Environment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failFor[cell.ID()]; ok {
		return Environment{}, err
	}
	p.acquired = append(p.acquired, cell.ID())
	return Environment{Dir: "/tmp/" + cell.ID(), Interpreter: "python" + cell.Runtime}, nil
}

func (p *fakeProvisioner) Release(env Environment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, env.Dir)
	return nil
}

type fakeInstaller struct {
	mu        sync.Mutex
	installed []string
	subjects  int
	failDep   string
	failLive  bool
}

func (i *fakeInstaller) Install(ctx context.Context, env Environment, spec domain.DependencySpec) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if spec.Name == i.failDep {
		return errors.New("no matching distribution")
	}
	i.installed = append(i.installed, spec.Spec())
	return nil
}

func (i *fakeInstaller) InstallSubject(ctx context.Context, env Environment, subject SubjectConfig) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.failLive {
		return errors.New("setup.py exited 1")
	}
	i.subjects++
	return nil
}

type fakeRunner struct {
	mu   sync.Mutex
	runs map[string]TestRun
	errs map[string]error
}

func (r *fakeRunner) Execute(ctx context.Context, env Environment, opts TestOptions) (TestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.errs[env.Dir]; ok {
		return TestRun{}, err
	}
	if run, ok := r.runs[env.Dir]; ok {
		return run, nil
	}
	return TestRun{Passed: true, Artifact: env.Dir + "/coverage.lcov"}, nil
}

type fakeParser struct {
	profiles map[string]domain.Profile
}

func (p fakeParser) Parse(path string) (domain.Profile, error) {
	if profile, ok := p.profiles[path]; ok {
		return profile.Clone(), nil
	}
	return nil, fmt.Errorf("unknown artifact %s", path)
}

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []string
	parallel  []bool
	finalized []string
}

func (s *fakeSubmitter) Submit(ctx context.Context, artifact string, parallel bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, artifact)
	s.parallel = append(s.parallel, parallel)
	return nil
}

func (s *fakeSubmitter) Finalize(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized = append(s.finalized, runID)
	return nil
}

type fakeBuilder struct {
	buildErr error
	failing  map[string]bool
	ran      []string
}

func (b *fakeBuilder) Build(ctx context.Context, source, out string) error {
	return b.buildErr
}

func (b *fakeBuilder) RunSnippet(ctx context.Context, snippet SnippetSpec, builtDir string) (string, error) {
	b.ran = append(b.ran, snippet.Name)
	if b.failing[snippet.Name] {
		return "traceback", errors.New("snippet exited 1")
	}
	return "ok", nil
}

type noopReporter struct{}

func (noopReporter) Write(w io.Writer, report domain.AggregateReport, format OutputFormat) error {
	return nil
}

func (noopReporter) WriteVerification(w io.Writer, result domain.VerificationResult, format OutputFormat) error {
	return nil
}
