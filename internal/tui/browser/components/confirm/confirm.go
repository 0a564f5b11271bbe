// Package confirm is a y/n dialog that guards a destructive action on one node.
package confirm

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattsolo1/grove-convo/pkg/models"
)

// ConfirmedMsg carries the node the user agreed to act on.
type ConfirmedMsg struct {
	Target models.Path
}

// CancelledMsg is sent when the user backs out.
type CancelledMsg struct {
	Target models.Path
}

// Model is the dialog state. The zero value is inactive.
type Model struct {
	Active bool
	Prompt string
	Detail string
	Target models.Path
	keys   keyMap
}

func New() Model {
	return Model{keys: defaultKeyMap}
}

// Activate shows the dialog for target. detail may be empty.
func (m *Model) Activate(target models.Path, prompt, detail string) {
	m.Target = target.Clone()
	m.Prompt = prompt
	m.Detail = detail
	m.Active = true
}

func (m *Model) close() models.Path {
	target := m.Target
	m.Active = false
	m.Target = nil
	m.Prompt, m.Detail = "", ""
	return target
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.Active {
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		target := m.close()
		return m, func() tea.Msg { return ConfirmedMsg{Target: target} }
	case key.Matches(keyMsg, m.keys.Cancel):
		target := m.close()
		return m, func() tea.Msg { return CancelledMsg{Target: target} }
	}
	return m, nil
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	hintStyle   = lipgloss.NewStyle().Faint(true).Align(lipgloss.Center)
)

func (m Model) View() string {
	if !m.Active {
		return ""
	}

	body := m.Prompt
	if m.Detail != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, m.Prompt, "", detailStyle.Render(m.Detail))
	}
	box := boxStyle.Render(body)
	hint := hintStyle.Width(lipgloss.Width(box)).Render("y delete • n/esc keep")

	return lipgloss.JoinVertical(lipgloss.Left, box, hint)
}

type keyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

var defaultKeyMap = keyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
}
