package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

type Loader struct{}

type fileConfig struct {
	Subject fileSubject `yaml:"subject"`
	Matrix  fileMatrix  `yaml:"matrix"`
	Test    fileTest    `yaml:"test"`
	Docs    fileDocs    `yaml:"docs"`
	Submit  fileSubmit  `yaml:"submit"`
}

type fileSubject struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type fileMatrix struct {
	OS       []string    `yaml:"os"`
	Runtimes []string    `yaml:"runtimes"`
	DepSets  [][]fileDep `yaml:"deps"`
	Include  []fileCell  `yaml:"include"`
}

type fileCell struct {
	OS      string    `yaml:"os"`
	Runtime string    `yaml:"runtime"`
	Deps    []fileDep `yaml:"deps"`
}

type fileDep struct {
	Name       string `yaml:"name"`
	Source     string `yaml:"source"`
	Constraint string `yaml:"constraint"`
	Repo       string `yaml:"repo"`
	Ref        string `yaml:"ref"`
}

type fileTest struct {
	StrictMarkers bool     `yaml:"strictMarkers"`
	ReportMode    string   `yaml:"reportMode"`
	Args          []string `yaml:"args"`
}

type fileDocs struct {
	Source   string        `yaml:"source"`
	BuildDir string        `yaml:"buildDir"`
	Snippets []fileSnippet `yaml:"snippets"`
}

type fileSnippet struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type fileSubmit struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	TokenEnv string `yaml:"tokenEnv"`
}

func (l Loader) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l Loader) Load(path string) (application.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return application.Config{}, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return application.Config{}, err
	}

	matrix := domain.Matrix{
		Runtimes: cfg.Matrix.Runtimes,
	}
	for _, o := range cfg.Matrix.OS {
		matrix.OS = append(matrix.OS, domain.OS(o))
	}
	for _, set := range cfg.Matrix.DepSets {
		matrix.DepSets = append(matrix.DepSets, toDeps(set))
	}
	for _, c := range cfg.Matrix.Include {
		matrix.Include = append(matrix.Include, domain.Cell{
			OS:      domain.OS(c.OS),
			Runtime: c.Runtime,
			Deps:    toDeps(c.Deps),
		})
	}

	reportMode := application.CoverageReportMode(cfg.Test.ReportMode)
	switch reportMode {
	case "", application.ReportImmediate:
		reportMode = application.ReportImmediate
	case application.ReportDeferred:
	default:
		return application.Config{}, fmt.Errorf("unknown reportMode %q", cfg.Test.ReportMode)
	}

	out := application.Config{
		Subject: application.SubjectConfig{Name: cfg.Subject.Name, Path: cfg.Subject.Path},
		Matrix:  matrix,
		Test: application.TestConfig{
			StrictMarkers: cfg.Test.StrictMarkers,
			ReportMode:    reportMode,
			Args:          cfg.Test.Args,
		},
		Docs: application.DocsConfig{
			Source:   cfg.Docs.Source,
			BuildDir: cfg.Docs.BuildDir,
		},
		Submit: application.SubmitConfig{
			Enabled:  cfg.Submit.Enabled,
			URL:      cfg.Submit.URL,
			TokenEnv: cfg.Submit.TokenEnv,
		},
	}
	for _, s := range cfg.Docs.Snippets {
		out.Docs.Snippets = append(out.Docs.Snippets, application.SnippetSpec{Name: s.Name, Path: s.Path})
	}
	if out.Subject.Name == "" {
		return application.Config{}, fmt.Errorf("subject.name is required")
	}
	return out, nil
}

func toDeps(deps []fileDep) []domain.DependencySpec {
	if len(deps) == 0 {
		return nil
	}
	out := make([]domain.DependencySpec, 0, len(deps))
	for _, d := range deps {
		source := domain.SourceRegistry
		if d.Source == string(domain.SourceVCS) || d.Ref != "" {
			source = domain.SourceVCS
		}
		out = append(out, domain.DependencySpec{
			Name:       d.Name,
			Source:     source,
			Constraint: d.Constraint,
			RepoURL:    d.Repo,
			Ref:        d.Ref,
		})
	}
	return out
}

// Write serializes a config back to YAML, for init.
func Write(w io.Writer, cfg application.Config) error {
	out := fileConfig{
		Subject: fileSubject{Name: cfg.Subject.Name, Path: cfg.Subject.Path},
		Matrix: fileMatrix{
			Runtimes: cfg.Matrix.Runtimes,
		},
		Test: fileTest{
			StrictMarkers: cfg.Test.StrictMarkers,
			ReportMode:    string(cfg.Test.ReportMode),
			Args:          cfg.Test.Args,
		},
		Docs: fileDocs{Source: cfg.Docs.Source, BuildDir: cfg.Docs.BuildDir},
		Submit: fileSubmit{
			Enabled:  cfg.Submit.Enabled,
			URL:      cfg.Submit.URL,
			TokenEnv: cfg.Submit.TokenEnv,
		},
	}
	for _, o := range cfg.Matrix.OS {
		out.Matrix.OS = append(out.Matrix.OS, string(o))
	}
	for _, set := range cfg.Matrix.DepSets {
		out.Matrix.DepSets = append(out.Matrix.DepSets, fromDeps(set))
	}
	for _, c := range cfg.Matrix.Include {
		out.Matrix.Include = append(out.Matrix.Include, fileCell{
			OS:      string(c.OS),
			Runtime: c.Runtime,
			Deps:    fromDeps(c.Deps),
		})
	}
	for _, s := range cfg.Docs.Snippets {
		out.Docs.Snippets = append(out.Docs.Snippets, fileSnippet{Name: s.Name, Path: s.Path})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(out)
}

func fromDeps(deps []domain.DependencySpec) []fileDep {
	out := make([]fileDep, 0, len(deps))
	for _, d := range deps {
		out = append(out, fileDep{
			Name:       d.Name,
			Source:     string(d.Source),
			Constraint: d.Constraint,
			Repo:       d.RepoURL,
			Ref:        d.Ref,
		})
	}
	return out
}
