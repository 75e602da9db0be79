// Package wizard implements the interactive init flow that assembles a
// starting matrix configuration.
package wizard

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/matrixctl/internal/application"
	"github.com/felixgeelhaar/matrixctl/internal/domain"
)

type (
	wizardState int

	initWizardModel struct {
		state     wizardState
		subject   string
		oses      []axisChoice
		runtimes  []axisChoice
		cursor    int
		confirmed bool
		aborted   bool
	}

	axisChoice struct {
		value    string
		selected bool
	}
)

const (
	stateIntro wizardState = iota
	stateEdit
	stateConfirm
)

// candidate axis values offered by the wizard. Anything beyond these
// goes in the config file by hand.
var (
	osChoices      = []string{"linux", "macos", "windows"}
	runtimeChoices = []string{"3.10", "3.11", "3.12", "3.13"}
)

func Run(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	model := newInitWizardModel(cfg)
	program := tea.NewProgram(model, tea.WithInput(stdin), tea.WithOutput(stdout))
	res, err := program.Run()
	if err != nil {
		return cfg, false, err
	}
	finalModel, ok := res.(*initWizardModel)
	if !ok {
		return cfg, false, fmt.Errorf("unexpected wizard state")
	}
	if finalModel.aborted || !finalModel.confirmed {
		return cfg, false, nil
	}
	return finalModel.toConfig(cfg), true, nil
}

func newInitWizardModel(cfg application.Config) *initWizardModel {
	subject := cfg.Subject.Name
	if subject == "" {
		subject = "my_project"
	}

	oses := make([]axisChoice, len(osChoices))
	for i, o := range osChoices {
		oses[i] = axisChoice{value: o, selected: containsOS(cfg.Matrix.OS, o) || (len(cfg.Matrix.OS) == 0 && o == "linux")}
	}
	runtimes := make([]axisChoice, len(runtimeChoices))
	for i, r := range runtimeChoices {
		runtimes[i] = axisChoice{value: r, selected: contains(cfg.Matrix.Runtimes, r) || len(cfg.Matrix.Runtimes) == 0}
	}

	return &initWizardModel{
		state:    stateIntro,
		subject:  subject,
		oses:     oses,
		runtimes: runtimes,
	}
}

func (m *initWizardModel) Init() tea.Cmd {
	return nil
}

func (m *initWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			switch m.state {
			case stateIntro:
				m.state = stateEdit
			case stateEdit:
				if m.selectedCount() > 0 {
					m.state = stateConfirm
				}
			case stateConfirm:
				m.confirmed = true
				return m, tea.Quit
			}
		case "esc":
			if m.state == stateConfirm {
				m.state = stateEdit
			}
		case "up":
			if m.state == stateEdit {
				m.moveCursor(-1)
			}
		case "down":
			if m.state == stateEdit {
				m.moveCursor(1)
			}
		case " ", "x":
			if m.state == stateEdit {
				m.toggleSelection()
			}
		}
	}
	return m, nil
}

func (m *initWizardModel) View() string {
	switch m.state {
	case stateIntro:
		return m.viewIntro()
	case stateEdit:
		return m.viewEdit()
	case stateConfirm:
		return m.viewConfirm()
	default:
		return ""
	}
}

func (m *initWizardModel) moveCursor(delta int) {
	max := len(m.oses) + len(m.runtimes) - 1
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > max {
		m.cursor = max
	}
}

func (m *initWizardModel) toggleSelection() {
	if m.cursor < len(m.oses) {
		m.oses[m.cursor].selected = !m.oses[m.cursor].selected
		return
	}
	idx := m.cursor - len(m.oses)
	if idx < len(m.runtimes) {
		m.runtimes[idx].selected = !m.runtimes[idx].selected
	}
}

// selectedCount returns the smaller of the two axis selections, so the
// edit state cannot be confirmed with an empty axis.
func (m *initWizardModel) selectedCount() int {
	oses, runtimes := 0, 0
	for _, c := range m.oses {
		if c.selected {
			oses++
		}
	}
	for _, c := range m.runtimes {
		if c.selected {
			runtimes++
		}
	}
	if oses < runtimes {
		return oses
	}
	return runtimes
}

func (m *initWizardModel) viewIntro() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nmatrixctl init wizard\n\n")
	fmt.Fprintf(&b, "Configure the build matrix for %s.\n\n", m.subject)
	fmt.Fprintf(&b, "Press Enter to continue, or Ctrl+C to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewEdit() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nSelect matrix axes\n\n")
	fmt.Fprintf(&b, "Use ↑/↓ to move, space to toggle.\n\n")
	fmt.Fprintf(&b, "Operating systems:\n")
	for idx, c := range m.oses {
		b.WriteString(renderChoice(c, m.cursor == idx))
	}
	fmt.Fprintf(&b, "\nRuntimes:\n")
	for idx, c := range m.runtimes {
		b.WriteString(renderChoice(c, m.cursor == len(m.oses)+idx))
	}
	fmt.Fprintf(&b, "\nEnter to continue, q to cancel.\n")
	return b.String()
}

func renderChoice(c axisChoice, active bool) string {
	prefix := "  "
	if active {
		prefix = "> "
	}
	mark := "[ ]"
	if c.selected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s%s %s\n", prefix, mark, c.value)
}

func (m *initWizardModel) viewConfirm() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReady to write configuration\n\n")
	fmt.Fprintf(&b, "Subject: %s\n", m.subject)
	fmt.Fprintf(&b, "OS: %s\n", strings.Join(selectedValues(m.oses), ", "))
	fmt.Fprintf(&b, "Runtimes: %s\n", strings.Join(selectedValues(m.runtimes), ", "))
	cells := len(selectedValues(m.oses)) * len(selectedValues(m.runtimes))
	fmt.Fprintf(&b, "\nThat expands to %d cells.\n", cells)
	fmt.Fprintf(&b, "\nPress Enter to save, Esc to go back, q to cancel.\n")
	return b.String()
}

func (m *initWizardModel) toConfig(cfg application.Config) application.Config {
	cfg.Subject.Name = m.subject
	if cfg.Subject.Path == "" {
		cfg.Subject.Path = "."
	}
	cfg.Matrix.OS = nil
	for _, o := range selectedValues(m.oses) {
		cfg.Matrix.OS = append(cfg.Matrix.OS, domain.OS(o))
	}
	cfg.Matrix.Runtimes = selectedValues(m.runtimes)
	if cfg.Test.ReportMode == "" {
		cfg.Test.ReportMode = application.ReportImmediate
	}
	return cfg
}

func selectedValues(choices []axisChoice) []string {
	var out []string
	for _, c := range choices {
		if c.selected {
			out = append(out, c.value)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsOS(values []domain.OS, v string) bool {
	for _, x := range values {
		if string(x) == v {
			return true
		}
	}
	return false
}
