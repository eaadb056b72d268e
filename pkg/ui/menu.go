// Package ui implements the interactive terminal surface: arrow-key menus,
// overwrite confirmation, and manual text entry. The orchestration flow only
// sees the Prompter interface, so rendering stays swappable.
package ui

import (
	"github.com/pkg/errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned whenever the user quits a prompt instead of
// answering it.
var ErrCancelled = errors.New("cancelled by user")

// Prompter is the interaction surface the flow depends on.
type Prompter interface {
	// Select shows an ordered menu and returns the chosen index.
	Select(title string, options []string) (int, error)
	// Confirm shows a yes/no decision with supporting detail text and
	// returns true for yes.
	Confirm(title, details string, yesLabel, noLabel string) (bool, error)
	// Input asks for a free-form line of text.
	Input(prompt, placeholder string) (string, error)
}

// Terminal is the bubbletea-backed Prompter.
type Terminal struct{}

var _ Prompter = Terminal{}

// NewTerminal returns the interactive terminal prompter.
func NewTerminal() Terminal {
	return Terminal{}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("36")).Bold(true)
	detailStyle   = lipgloss.NewStyle().Faint(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
)

type selectModel struct {
	title   string
	details string
	options []string
	index   int

	chosen    bool
	cancelled bool
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		m.index = (m.index - 1 + len(m.options)) % len(m.options)
	case "down", "j":
		m.index = (m.index + 1) % len(m.options)
	case "enter":
		m.chosen = true
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m selectModel) View() string {
	s := titleStyle.Render(m.title) + "\n\n"
	if m.details != "" {
		s += detailStyle.Render(m.details) + "\n\n"
	}
	for i, opt := range m.options {
		if i == m.index {
			s += cursorStyle.Render("▶ ") + selectedStyle.Render(opt) + "\n"
		} else {
			s += "  " + opt + "\n"
		}
	}
	s += "\n" + helpStyle.Render("↑/↓ navigate · enter select · q quit") + "\n"
	return s
}

func (Terminal) Select(title string, options []string) (int, error) {
	return runSelect(title, "", options)
}

func (Terminal) Confirm(title, details, yesLabel, noLabel string) (bool, error) {
	idx, err := runSelect(title, details, []string{yesLabel, noLabel})
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

func runSelect(title, details string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options to select from")
	}

	final, err := tea.NewProgram(selectModel{
		title:   title,
		details: details,
		options: options,
	}).Run()
	if err != nil {
		return 0, errors.Wrap(err, "run selection menu")
	}

	m := final.(selectModel)
	if m.cancelled {
		return 0, ErrCancelled
	}
	return m.index, nil
}
