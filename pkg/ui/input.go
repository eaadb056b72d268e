package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

type inputModel struct {
	prompt string
	field  textinput.Model

	done      bool
	cancelled bool
}

func newInputModel(prompt, placeholder string) inputModel {
	f := textinput.New()
	f.Placeholder = placeholder
	f.Focus()
	return inputModel{prompt: prompt, field: f}
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.done = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.field, cmd = m.field.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	return titleStyle.Render(m.prompt) + "\n\n" +
		m.field.View() + "\n\n" +
		helpStyle.Render("enter confirm · esc cancel") + "\n"
}

func (Terminal) Input(prompt, placeholder string) (string, error) {
	final, err := tea.NewProgram(newInputModel(prompt, placeholder)).Run()
	if err != nil {
		return "", errors.Wrap(err, "run input prompt")
	}

	m := final.(inputModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return strings.TrimSpace(m.field.Value()), nil
}
