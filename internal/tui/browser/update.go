package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattsolo1/grove-convo/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resizeTranscript()
		m.adjustScroll()
		return m, nil

	case treeLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.root = msg.root
		m.loaded = true
		m.buildDisplayTree()
		return m, nil

	case segmentsLoadedMsg:
		current, ok := m.service.Current()
		if !ok || !current.Equal(msg.path) {
			return m, nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.segments = msg.segments
		m.renderTranscript()
		m.transcript.GotoBottom()
		return m, nil

	case transcribedMsg:
		m.transcribing = false
		switch {
		case errors.Is(msg.err, service.ErrNothingPending):
			m.setStatus(fmt.Sprintf("No recordings waiting in %s", msg.path))
		case msg.err != nil:
			m.setError(msg.err)
		default:
			m.setStatus(fmt.Sprintf("Transcribed %d chunk(s) into %s", msg.result.Transcribed, msg.path))
		}
		return m, m.refreshCmd()

	case recordingStoppedMsg:
		if m.recording != msg.rec {
			return m, nil
		}
		m.recording, m.recordingPath = nil, nil
		chunks := len(msg.rec.Chunks())
		switch {
		case msg.err != nil:
			m.setError(fmt.Errorf("recording %s: %w", msg.path, msg.err))
			return m, m.refreshCmd()
		case m.transcribing:
			m.setStatus(fmt.Sprintf("Recorded %d chunk(s) into %s", chunks, msg.path))
			return m, m.refreshCmd()
		}
		m.transcribing = true
		m.setStatus(fmt.Sprintf("Recorded %d chunk(s), transcribing %s...", chunks, msg.path))
		return m, tea.Batch(m.refreshCmd(), transcribeCmd(m.ctx, m.service, msg.path))

	case confirm.ConfirmedMsg:
		p := msg.Target
		if err := m.service.Delete(p); err != nil {
			m.setError(err)
			return m, nil
		}
		m.segments = nil
		m.renderTranscript()
		m.setStatus(fmt.Sprintf("Deleted %s", p))
		return m, fetchTreeCmd(m.service)

	case confirm.CancelledMsg:
		m.setStatus("")
		return m, nil

	case tea.KeyMsg:
		if m.confirm.Active {
			var cmd tea.Cmd
			m.confirm, cmd = m.confirm.Update(msg)
			return m, cmd
		}
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		if m.help.ShowAll {
			m.help.ShowAll = false
			return m, nil
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.recording != nil {
			_ = m.recording.Stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.adjustScroll()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.displayNodes)-1 {
			m.cursor++
			m.adjustScroll()
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.transcript.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.transcript.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		node := m.selectedNode()
		if node == nil {
			return m, nil
		}
		if node.isFolder() {
			id := node.entry.Path.String()
			m.expanded[id] = !m.expanded[id]
			m.buildDisplayTree()
			return m, nil
		}
		if err := m.service.Select(node.entry.Path); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Selected %s", node.entry.Path))
		return m, fetchSegmentsCmd(m.service, node.entry.Path)

	case key.Matches(msg, m.keys.NewConversation):
		return m.startInput(inputNewConversation, m.targetFolder(), "")

	case key.Matches(msg, m.keys.NewFolder):
		return m.startInput(inputNewFolder, m.targetFolder(), "")

	case key.Matches(msg, m.keys.Rename):
		node := m.selectedNode()
		if node == nil {
			return m, nil
		}
		if m.isRecordingUnder(node.entry.Path) {
			m.setStatus("Stop the recording first")
			return m, nil
		}
		return m.startInput(inputRename, node.entry.Path, node.entry.Name)

	case key.Matches(msg, m.keys.Delete):
		node := m.selectedNode()
		if node == nil {
			return m, nil
		}
		if m.isRecordingUnder(node.entry.Path) {
			m.setStatus("Stop the recording first")
			return m, nil
		}
		what := "conversation"
		if node.isFolder() {
			what = "folder"
		}
		m.confirm.Activate(node.entry.Path,
			fmt.Sprintf("Delete %s %s and all of its transcripts?", what, node.entry.Path),
			deleteDetail(node.entry))
		return m, nil

	case key.Matches(msg, m.keys.Transcribe):
		if m.transcribing {
			m.setStatus("Transcription already running")
			return m, nil
		}
		p, ok := m.conversationTarget()
		if !ok {
			m.setStatus("Select a conversation to transcribe")
			return m, nil
		}
		m.transcribing = true
		m.setStatus(fmt.Sprintf("Transcribing %s...", p))
		return m, transcribeCmd(m.ctx, m.service, p)

	case key.Matches(msg, m.keys.Record):
		if m.recording != nil {
			m.setStatus(fmt.Sprintf("Stopping recording of %s...", m.recordingPath))
			return m, stopRecordingCmd(m.recording, m.recordingPath)
		}
		p, ok := m.conversationTarget()
		if !ok {
			m.setStatus("Select a conversation to record into")
			return m, nil
		}
		rec, err := m.service.StartRecording(m.ctx, p)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.recording, m.recordingPath = rec, p
		m.setStatus(fmt.Sprintf("Recording into %s. Press s to stop.", p))
		return m, waitRecordingCmd(rec, p)

	case key.Matches(msg, m.keys.Refresh):
		m.setStatus("")
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) startInput(mode inputMode, target models.Path, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.inputNode = target
	m.input.SetValue(value)
	m.input.CursorEnd()
	switch mode {
	case inputNewConversation:
		m.input.Placeholder = "conversation name"
	case inputNewFolder:
		m.input.Placeholder = "folder name"
	case inputRename:
		m.input.Placeholder = "new name"
	}
	return m, m.input.Focus()
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(m.input.Value())
		mode, target := m.mode, m.inputNode
		m.mode = inputNone
		m.input.Blur()
		if name == "" {
			return m, nil
		}
		return m.applyInput(mode, target, name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applyInput(mode inputMode, target models.Path, name string) (tea.Model, tea.Cmd) {
	switch mode {
	case inputNewConversation:
		if err := m.service.CreateConversation(target, name); err != nil {
			m.setError(err)
			return m, nil
		}
		p := target.Join(models.NormalizeName(name))
		m.expandTo(p)
		m.segments = nil
		m.renderTranscript()
		m.setStatus(fmt.Sprintf("Created conversation %s", p))
		return m, fetchTreeCmd(m.service)

	case inputNewFolder:
		if err := m.service.CreateFolder(target, name); err != nil {
			m.setError(err)
			return m, nil
		}
		p := target.Join(models.NormalizeName(name))
		m.expandTo(p)
		m.setStatus(fmt.Sprintf("Created folder %s", p))
		return m, fetchTreeCmd(m.service)

	case inputRename:
		if err := m.service.Rename(target, name); err != nil {
			m.setError(err)
			return m, nil
		}
		next := target.Parent().Join(models.NormalizeName(name))
		m.relocateExpanded(target, next)
		m.setStatus(fmt.Sprintf("Renamed %s to %s", target, next))
		return m, m.refreshCmd()
	}
	return m, nil
}

// conversationTarget picks the conversation under the cursor, falling back to the
// selected one.
func (m *Model) conversationTarget() (models.Path, bool) {
	if node := m.selectedNode(); node != nil && !node.isFolder() {
		return node.entry.Path, true
	}
	return m.service.Current()
}

// isRecordingUnder reports whether the in-flight recording writes into p or beneath it.
func (m *Model) isRecordingUnder(p models.Path) bool {
	return m.recording != nil && m.recordingPath.HasPrefix(p)
}

func (m *Model) refreshCmd() tea.Cmd {
	cmds := []tea.Cmd{fetchTreeCmd(m.service)}
	if current, ok := m.service.Current(); ok {
		cmds = append(cmds, fetchSegmentsCmd(m.service, current))
	}
	return tea.Batch(cmds...)
}

// expandTo opens every folder on the way to p.
func (m *Model) expandTo(p models.Path) {
	for i := 1; i < len(p); i++ {
		m.expanded[p[:i].String()] = true
	}
}

func (m *Model) relocateExpanded(oldPrefix, newPrefix models.Path) {
	next := make(map[string]bool, len(m.expanded))
	for id, open := range m.expanded {
		p := models.ParsePath(id)
		if p.HasPrefix(oldPrefix) {
			p = p.Rebase(oldPrefix, newPrefix)
		}
		next[p.String()] = open
	}
	m.expanded = next
}

// buildDisplayTree flattens the expanded part of the tree, keeping the cursor on the
// same path when it still exists.
func (m *Model) buildDisplayTree() {
	var cursorPath models.Path
	if node := m.selectedNode(); node != nil {
		cursorPath = node.entry.Path
	}

	var nodes []*displayNode
	var walk func(entries []*models.Entry, depth int)
	walk = func(entries []*models.Entry, depth int) {
		for _, e := range entries {
			nodes = append(nodes, &displayNode{entry: e, depth: depth})
			if e.Kind == models.KindFolder && m.expanded[e.Path.String()] {
				walk(e.Children, depth+1)
			}
		}
	}
	if m.root != nil {
		walk(m.root.Children, 0)
	}
	m.displayNodes = nodes

	if cursorPath != nil {
		for i, n := range nodes {
			if n.entry.Path.Equal(cursorPath) {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor()
	m.adjustScroll()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.displayNodes) {
		if len(m.displayNodes) > 0 {
			m.cursor = len(m.displayNodes) - 1
		} else {
			m.cursor = 0
		}
	}
}

// getViewportHeight calculates how many lines are available for the tree.
func (m *Model) getViewportHeight() int {
	// Account for:
	// - Header: 1 line
	// - Blank line after header: 1 line
	// - Pane borders: 2 lines
	// - Status bar: 1 line
	// - Footer (help): 1 line
	const fixedLines = 6
	availableHeight := m.height - fixedLines
	if availableHeight < 1 {
		return 1
	}
	return availableHeight
}

// adjustScroll ensures the cursor is visible in the viewport.
func (m *Model) adjustScroll() {
	viewportHeight := m.getViewportHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	} else if m.cursor >= m.scrollOffset+viewportHeight {
		m.scrollOffset = m.cursor - viewportHeight + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m *Model) treeWidth() int {
	w := m.width / 3
	if w < 24 {
		w = 24
	}
	return w
}

func (m *Model) resizeTranscript() {
	w := m.width - m.treeWidth() - 4
	if w < 10 {
		w = 10
	}
	m.transcript.Width = w
	m.transcript.Height = m.getViewportHeight()
	m.renderTranscript()
}

func (m *Model) renderTranscript() {
	if len(m.segments) == 0 {
		m.transcript.SetContent(mutedStyle.Render("No transcript yet"))
		return
	}
	wrap := lipgloss.NewStyle().Width(m.transcript.Width)
	var b strings.Builder
	for i, seg := range m.segments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(timeStyle.Render(seg.Time.Format("2006-01-02 15:04:05")))
		b.WriteString("\n")
		b.WriteString(wrap.Render(seg.Text))
	}
	m.transcript.SetContent(b.String())
}

func (m *Model) setStatus(s string) {
	m.statusMessage = s
	m.statusIsError = false
}

func (m *Model) setError(err error) {
	m.statusMessage = err.Error()
	m.statusIsError = true
}

// deleteDetail summarizes what a delete of e would remove.
func deleteDetail(e *models.Entry) string {
	conversations, segments := 0, 0
	var count func(*models.Entry)
	count = func(e *models.Entry) {
		if e.Kind == models.KindConversation {
			conversations++
			segments += e.Segments
			return
		}
		for _, c := range e.Children {
			count(c)
		}
	}
	count(e)

	if e.Kind == models.KindConversation {
		if segments == 0 {
			return "No transcript segments yet."
		}
		return fmt.Sprintf("%d transcript segment(s) will be removed.", segments)
	}
	if conversations == 0 {
		return "The folder is empty."
	}
	return fmt.Sprintf("%d conversation(s) with %d segment(s) will be removed.", conversations, segments)
}
