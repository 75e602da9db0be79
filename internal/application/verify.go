package application

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

// VerifyDocs builds the documentation tree and executes its snippets in
// declaration order. It has no relationship to the matrix pipeline: its
// failures never touch the aggregate report.
//
// A failed build short-circuits snippet checking entirely; the snippets
// depend on a successfully built tree. A failed snippet does not abort
// the snippets after it (collect-all-failures).
func (s *Service) VerifyDocs(ctx context.Context, opts VerifyOptions) (domain.VerificationResult, error) {
	cfg, err := s.loadConfig(opts.ConfigPath)
	if err != nil {
		return domain.VerificationResult{}, err
	}

	result := domain.VerificationResult{}
	if err := s.DocBuilder.Build(ctx, cfg.Docs.Source, cfg.Docs.BuildDir); err != nil {
		buildErr := &domain.BuildError{Err: err}
		var be *domain.BuildError
		if errors.As(err, &be) {
			buildErr = be
		}
		result.BuildErr = buildErr.Error()
		return result, nil
	}
	result.DocBuildOK = true

	// Snippets share interpreter and document state, so they run
	// sequentially, never in parallel.
	for _, snippet := range cfg.Docs.Snippets {
		output, err := s.DocBuilder.RunSnippet(ctx, snippet, cfg.Docs.BuildDir)
		result.Snippets = append(result.Snippets, domain.SnippetResult{
			Name:   snippet.Name,
			Passed: err == nil,
			Output: output,
		})
	}
	return result, nil
}

// Verify renders the verification result after running it.
func (s *Service) Verify(ctx context.Context, opts VerifyOptions) error {
	result, err := s.VerifyDocs(ctx, opts)
	if err != nil {
		return err
	}
	if err := s.Reporter.WriteVerification(s.Out, result, opts.Output); err != nil {
		return err
	}
	if !result.Passed() {
		return errors.New("documentation verification failed")
	}
	return nil
}
