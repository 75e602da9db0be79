package application_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/lcov"
	"github.com/felixgeelhaar/matrixctl/internal/infrastructure/provision"
)

// These tests wire the real provisioner and the real lcov parser around
// a runner that writes its artifact to disk inside the environment, the
// way the pytest adapter does. They pin the contract that artifacts
// remain readable after the environment is released.

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

func hostProvisioner(root string) provision.Provisioner {
	return provision.Provisioner{
		Root:     root,
		Exec:     func(context.Context, string, string, []string) error { return nil },
		LookPath: func(string) (string, error) { return "/usr/bin/python3", nil },
	}
}

// diskRunner writes a valid lcov artifact into the environment directory
// and reports it by path, like the pytest adapter.
type diskRunner struct{}

func (diskRunner) Execute(_ context.Context, env application.Environment, _ application.TestOptions) (application.TestRun, error) {
	path := filepath.Join(env.Dir, "coverage.lcov")
	content := "SF:src/circuit.py\nDA:1,1\nDA:2,0\nend_of_record\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return application.TestRun{}, err
	}
	return application.TestRun{Passed: true, Artifact: path}, nil
}

type nopInstaller struct{}

func (nopInstaller) Install(context.Context, application.Environment, domain.DependencySpec) error {
	return nil
}

func (nopInstaller) InstallSubject(context.Context, application.Environment, application.SubjectConfig) error {
	return nil
}

type staticLoader struct {
	cfg application.Config
}

func (l staticLoader) Load(string) (application.Config, error) { return l.cfg, nil }
func (l staticLoader) Exists(string) (bool, error)             { return true, nil }

// readingSubmitter reads each artifact at submit time, as the HTTP
// submission client does.
type readingSubmitter struct {
	payloads  []string
	finalized []string
}

func (s *readingSubmitter) Submit(_ context.Context, artifact string, _ bool) error {
	data, err := os.ReadFile(artifact)
	if err != nil {
		return err
	}
	s.payloads = append(s.payloads, string(data))
	return nil
}

func (s *readingSubmitter) Finalize(_ context.Context, runID string) error {
	s.finalized = append(s.finalized, runID)
	return nil
}

func TestArtifactSurvivesEnvironmentRelease(t *testing.T) {
	envRoot := t.TempDir()
	exec := &application.Executor{
		Provisioner: hostProvisioner(envRoot),
		Installer:   nopInstaller{},
		Runner:      diskRunner{},
		Subject:     application.SubjectConfig{Name: "qutip_qip", Path: "."},
		ArtifactDir: t.TempDir(),
	}

	result := exec.Run(context.Background(), domain.Cell{OS: hostOS(), Runtime: "3.11"})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Status != domain.ExitSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}

	leftovers, err := os.ReadDir(envRoot)
	if err != nil {
		t.Fatalf("read env root: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("environment not released: %v", leftovers)
	}

	if _, err := os.Stat(result.Artifact); err != nil {
		t.Fatalf("artifact must outlive the released environment: %v", err)
	}
	profile, err := lcov.New().Parse(result.Artifact)
	if err != nil {
		t.Fatalf("artifact must stay parseable after release: %v", err)
	}
	stat := profile.Overall()
	if stat.Covered != 1 || stat.Total != 2 {
		t.Fatalf("unexpected coverage from preserved artifact: %+v", stat)
	}
}

// crashingDiskRunner writes a partial artifact and then aborts, like an
// interpreter crash mid-suite.
type crashingDiskRunner struct{}

func (crashingDiskRunner) Execute(_ context.Context, env application.Environment, _ application.TestOptions) (application.TestRun, error) {
	path := filepath.Join(env.Dir, "coverage.lcov")
	content := "SF:src/circuit.py\nDA:1,1\nend_of_record\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return application.TestRun{}, err
	}
	return application.TestRun{Artifact: path}, errors.New("interpreter aborted")
}

func TestCrashArtifactSurvivesEnvironmentRelease(t *testing.T) {
	exec := &application.Executor{
		Provisioner: hostProvisioner(t.TempDir()),
		Installer:   nopInstaller{},
		Runner:      crashingDiskRunner{},
		Subject:     application.SubjectConfig{Name: "qutip_qip", Path: "."},
		ArtifactDir: t.TempDir(),
	}

	result := exec.Run(context.Background(), domain.Cell{OS: hostOS(), Runtime: "3.11"})
	if result.State != domain.StateFailed {
		t.Fatalf("runner crash must fail the cell, got %s", result.State)
	}
	if result.Artifact == "" {
		t.Fatal("partial artifact reference lost")
	}
	if _, err := os.Stat(result.Artifact); err != nil {
		t.Fatalf("partial artifact must outlive the released environment: %v", err)
	}
}

func TestRunIngestsAndSubmitsAfterRelease(t *testing.T) {
	cfg := application.Config{
		Subject: application.SubjectConfig{Name: "qutip_qip", Path: "."},
		Matrix: domain.Matrix{
			OS:       []domain.OS{hostOS()},
			Runtimes: []string{"3.10", "3.12"},
		},
		Submit: application.SubmitConfig{Enabled: true, URL: "https://coveralls.example"},
	}
	submitter := &readingSubmitter{}
	svc := &application.Service{
		ConfigLoader: staticLoader{cfg: cfg},
		Provisioner:  hostProvisioner(t.TempDir()),
		Installer:    nopInstaller{},
		Runner:       diskRunner{},
		Parser:       lcov.New(),
		Submitter:    submitter,
		Out:          io.Discard,
	}

	report, err := svc.RunReport(context.Background(), application.RunOptions{RunID: "run-7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Passed {
		t.Fatalf("expected passing report, got %+v", report)
	}
	if report.Covered != 1 || report.Total != 2 {
		t.Fatalf("artifacts not aggregated: %+v", report)
	}
	for _, o := range report.Outcomes {
		if o.Reason != "" {
			t.Fatalf("cell %s degraded: %s", o.Cell, o.Reason)
		}
	}

	if len(submitter.payloads) != 2 {
		t.Fatalf("expected both artifacts submitted, got %d", len(submitter.payloads))
	}
	for _, payload := range submitter.payloads {
		if !strings.Contains(payload, "SF:src/circuit.py") {
			t.Fatalf("submitted payload missing lcov content: %q", payload)
		}
	}
	if len(submitter.finalized) != 1 || submitter.finalized[0] != "run-7" {
		t.Fatalf("finalize not invoked: %v", submitter.finalized)
	}
}
