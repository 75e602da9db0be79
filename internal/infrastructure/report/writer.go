// Package report renders aggregate and verification results for humans
// and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

type Writer struct{}

func (Writer) Write(w io.Writer, report domain.AggregateReport, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case application.OutputText, "":
		return writeText(w, report)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeText(w io.Writer, report domain.AggregateReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Cell\tStatus\tArtifact")

	colorize := colorEnabled(w)
	passStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04")).Bold(true)

	for _, o := range report.Outcomes {
		status := string(o.Status)
		if colorize {
			if o.Status == domain.ExitSuccess {
				status = passStyle.Render(status)
			} else {
				status = failStyle.Render(status)
			}
		}
		artifact := o.Artifact
		if artifact == "" {
			artifact = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Cell, status, artifact)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// Percent arrives already rounded; rounding policy lives in the
	// aggregate, not here.
	fmt.Fprintf(w, "\nCoverage: %.1f%% (%d of %d lines, union of %d cells)\n",
		report.Percent, report.Covered, report.Total, report.Received)

	if report.Incomplete {
		note := fmt.Sprintf("INCOMPLETE: %d of %d cells reported", report.Received, report.Expected)
		if colorize {
			note = warnStyle.Render(note)
		}
		fmt.Fprintln(w, note)
		for _, cell := range report.Missing {
			fmt.Fprintf(w, "  missing: %s\n", cell)
		}
	}

	verdict := "PASS"
	style := passStyle
	if !report.Passed {
		verdict = "FAIL"
		style = failStyle
	}
	if colorize {
		verdict = style.Render(verdict)
	}
	fmt.Fprintln(w, verdict)
	return nil
}

func (Writer) WriteVerification(w io.Writer, result domain.VerificationResult, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		payload := struct {
			domain.VerificationResult
			Passed bool `json:"passed"`
		}{
			VerificationResult: result,
			Passed:             result.Passed(),
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case application.OutputText, "":
		return writeVerificationText(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeVerificationText(w io.Writer, result domain.VerificationResult) error {
	colorize := colorEnabled(w)
	passStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)

	render := func(ok bool, label string) string {
		if !colorize {
			return label
		}
		if ok {
			return passStyle.Render(label)
		}
		return failStyle.Render(label)
	}

	if !result.DocBuildOK {
		fmt.Fprintf(w, "Doc build: %s\n", render(false, "FAIL"))
		if result.BuildErr != "" {
			fmt.Fprintf(w, "  %s\n", result.BuildErr)
		}
		fmt.Fprintln(w, "Snippets skipped: build failed")
		return nil
	}

	fmt.Fprintf(w, "Doc build: %s\n", render(true, "ok"))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Snippet\tStatus")
	for _, s := range result.Snippets {
		label := "ok"
		if !s.Passed {
			label = "FAIL"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", s.Name, render(s.Passed, label))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range result.Snippets {
		if !s.Passed && s.Output != "" {
			fmt.Fprintf(w, "\n--- %s ---\n%s\n", s.Name, s.Output)
		}
	}
	return nil
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
