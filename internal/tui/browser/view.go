package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if !m.loaded {
		if m.statusIsError {
			return errorStyle.Render(m.statusMessage)
		}
		return "Loading..."
	}

	if m.help.ShowAll {
		return headerStyle.Render("Conversation Browser - Help") + "\n\n" + m.help.View(m.keys)
	}

	header := headerStyle.Render("Conversations")
	if current, ok := m.service.Current(); ok {
		header += mutedStyle.Render("  " + current.String())
	}
	if m.recording != nil {
		header += errorStyle.Render("  ● REC " + m.recordingPath.String())
	}

	tree := paneStyle.Width(m.treeWidth()).Height(m.getViewportHeight()).Render(m.renderTreeView())
	transcript := paneStyle.Render(m.transcript.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, tree, transcript)

	if m.confirm.Active {
		body = lipgloss.Place(m.width, m.getViewportHeight()+2, lipgloss.Center, lipgloss.Center, m.confirm.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		body,
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderTreeView() string {
	if len(m.displayNodes) == 0 {
		return mutedStyle.Render("Empty. Press n to create a conversation.")
	}

	var b strings.Builder
	viewportHeight := m.getViewportHeight()
	start := m.scrollOffset
	end := m.scrollOffset + viewportHeight
	if end > len(m.displayNodes) {
		end = len(m.displayNodes)
	}

	for i := start; i < end; i++ {
		node := m.displayNodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = highlightStyle.Render("▶ ")
		}
		indent := strings.Repeat("  ", node.depth)

		var line string
		if node.isFolder() {
			fold := "▸ "
			if m.expanded[node.entry.Path.String()] {
				fold = "▾ "
			}
			line = fmt.Sprintf("%s%s%s%s/", cursor, indent, fold, node.entry.Name)
		} else {
			line = fmt.Sprintf("%s%s  %s %s", cursor, indent, node.entry.Name,
				mutedStyle.Render(fmt.Sprintf("(%d, %s)", node.entry.Segments, formatRelativeTime(node.entry.ModifiedAt))))
			if m.service.Session.IsSelected(node.entry.Path) {
				line = selectedStyle.Render(line)
			}
		}
		if i == m.cursor {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	if len(m.displayNodes) > viewportHeight {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d-%d of %d)", start+1, end, len(m.displayNodes))))
	}
	return b.String()
}

func (m Model) renderStatus() string {
	switch {
	case m.mode != inputNone:
		prompt := "New conversation in "
		switch m.mode {
		case inputNewFolder:
			prompt = "New folder in "
		case inputRename:
			prompt = "Rename " + m.inputNode.String() + " to "
		}
		if m.mode != inputRename {
			where := m.inputNode.String()
			if where == "" {
				where = "/"
			}
			prompt += where + ": "
		}
		return prompt + m.input.View()
	case m.statusIsError:
		return errorStyle.Render(m.statusMessage)
	default:
		return mutedStyle.Render(m.statusMessage)
	}
}
