package wizard

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

func minimalConfig() application.Config {
	return application.Config{
		Subject: application.SubjectConfig{Name: "qutip_qip"},
		Matrix: domain.Matrix{
			OS:       []domain.OS{domain.OSLinux},
			Runtimes: []string{"3.11"},
		},
	}
}

func TestInitWizardModelSeedsFromConfig(t *testing.T) {
	model := newInitWizardModel(minimalConfig())

	if model.subject != "qutip_qip" {
		t.Fatalf("expected subject from config, got %q", model.subject)
	}
	if !model.oses[0].selected {
		t.Fatalf("expected linux preselected")
	}
	if model.oses[1].selected || model.oses[2].selected {
		t.Fatalf("expected only configured OS selected")
	}
	selected := selectedValues(model.runtimes)
	if len(selected) != 1 || selected[0] != "3.11" {
		t.Fatalf("expected configured runtime selected, got %v", selected)
	}
}

func TestInitWizardModelDefaultsWithEmptyConfig(t *testing.T) {
	model := newInitWizardModel(application.Config{})

	if model.subject != "my_project" {
		t.Fatalf("expected placeholder subject, got %q", model.subject)
	}
	if !model.oses[0].selected {
		t.Fatalf("expected linux selected by default")
	}
	if len(selectedValues(model.runtimes)) != len(runtimeChoices) {
		t.Fatalf("expected all runtimes selected by default")
	}
}

func TestInitWizardToggleSelection(t *testing.T) {
	model := newInitWizardModel(minimalConfig())

	model.cursor = 1 // macos
	model.toggleSelection()
	if !model.oses[1].selected {
		t.Fatalf("expected macos toggled on")
	}

	model.cursor = len(model.oses) // first runtime
	model.toggleSelection()
	if !model.runtimes[0].selected {
		t.Fatalf("expected first runtime toggled on")
	}
}

func TestInitWizardMoveCursor(t *testing.T) {
	model := newInitWizardModel(minimalConfig())
	model.moveCursor(1)
	if model.cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", model.cursor)
	}
	model.moveCursor(-5)
	if model.cursor != 0 {
		t.Fatalf("expected cursor 0, got %d", model.cursor)
	}
	max := len(model.oses) + len(model.runtimes) - 1
	model.moveCursor(max + 5)
	if model.cursor != max {
		t.Fatalf("expected cursor at max %d, got %d", max, model.cursor)
	}
}

func TestInitWizardUpdateTransitions(t *testing.T) {
	model := newInitWizardModel(minimalConfig())
	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if model.state != stateEdit {
		t.Fatalf("expected edit state, got %d", model.state)
	}
	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if model.state != stateConfirm {
		t.Fatalf("expected confirm state, got %d", model.state)
	}
	model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if model.state != stateEdit {
		t.Fatalf("expected edit state on esc, got %d", model.state)
	}
}

func TestInitWizardCannotConfirmEmptyAxis(t *testing.T) {
	model := newInitWizardModel(minimalConfig())
	model.state = stateEdit
	model.cursor = 0
	model.toggleSelection() // deselect the only OS

	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if model.state != stateEdit {
		t.Fatalf("expected to stay in edit with empty axis, got %d", model.state)
	}
}

func TestInitWizardToConfig(t *testing.T) {
	model := newInitWizardModel(minimalConfig())
	model.cursor = 1 // add macos
	model.toggleSelection()

	cfg := model.toConfig(minimalConfig())
	if len(cfg.Matrix.OS) != 2 {
		t.Fatalf("expected 2 OS values, got %v", cfg.Matrix.OS)
	}
	if cfg.Subject.Path != "." {
		t.Fatalf("expected subject path defaulted, got %q", cfg.Subject.Path)
	}
	if cfg.Test.ReportMode != application.ReportImmediate {
		t.Fatalf("expected report mode defaulted, got %q", cfg.Test.ReportMode)
	}

	cells, err := cfg.Matrix.Expand()
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(cells))
	}
}

func TestInitWizardViewConfirmShowsCellCount(t *testing.T) {
	model := newInitWizardModel(minimalConfig())
	model.state = stateConfirm
	view := model.View()
	if !strings.Contains(view, "expands to 1 cells") {
		t.Fatalf("expected cell count in view, got:\n%s", view)
	}
	if !strings.Contains(view, "qutip_qip") {
		t.Fatalf("expected subject in view")
	}
}
