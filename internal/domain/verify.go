package domain

// SnippetResult is the outcome of one documentation snippet or example
// script, in declaration order.
type SnippetResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Output string `json:"output,omitempty"`
}

// VerificationResult is produced by the documentation verifier. A failed
// build yields DocBuildOK=false and no snippet results; a failed snippet
// never stops the snippets after it.
type VerificationResult struct {
	DocBuildOK bool            `json:"docBuildOk"`
	BuildErr   string          `json:"buildError,omitempty"`
	Snippets   []SnippetResult `json:"snippets,omitempty"`
}

// Passed reports whether the build and every snippet succeeded.
func (v VerificationResult) Passed() bool {
	if !v.DocBuildOK {
		return false
	}
	for _, s := range v.Snippets {
		if !s.Passed {
			return false
		}
	}
	return true
}

// FailedSnippets returns the names of snippets that did not pass.
func (v VerificationResult) FailedSnippets() []string {
	var names []string
	for _, s := range v.Snippets {
		if !s.Passed {
			names = append(names, s.Name)
		}
	}
	return names
}
