package browser

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keybindings for the browser TUI
type KeyMap struct {
	Up              key.Binding
	Down            key.Binding
	Enter           key.Binding
	NewConversation key.Binding
	NewFolder       key.Binding
	Rename          key.Binding
	Delete          key.Binding
	Record          key.Binding
	Transcribe      key.Binding
	Refresh         key.Binding
	ScrollUp        key.Binding
	ScrollDown      key.Binding
	Help            key.Binding
	Quit            key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.NewConversation, k.Record, k.Transcribe, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.ScrollUp, k.ScrollDown},
		{k.NewConversation, k.NewFolder, k.Rename, k.Delete},
		{k.Record, k.Transcribe, k.Refresh, k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "expand/select"),
	),
	NewConversation: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new conversation"),
	),
	NewFolder: key.NewBinding(
		key.WithKeys("N"),
		key.WithHelp("N", "new folder"),
	),
	Rename: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rename"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Record: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start/stop recording"),
	),
	Transcribe: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "transcribe recordings"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "refresh"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("ctrl+u", "scroll transcript up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "scroll transcript down"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
