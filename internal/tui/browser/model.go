package browser

import (
	"context"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-convo/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/recorder"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

type inputMode int

const (
	inputNone inputMode = iota
	inputNewConversation
	inputNewFolder
	inputRename
)

// displayNode represents a single line in the tree pane.
type displayNode struct {
	entry *models.Entry
	depth int
}

func (n *displayNode) isFolder() bool {
	return n.entry.Kind == models.KindFolder
}

// Model is the main model for the conversation browser TUI
type Model struct {
	service      *service.Service
	ctx          context.Context
	root         *models.Entry
	displayNodes []*displayNode
	cursor       int
	scrollOffset int
	keys         KeyMap
	help         help.Model
	width        int
	height       int

	// Folders the user has expanded, keyed by path string
	expanded map[string]bool

	// Transcript pane
	transcript viewport.Model
	segments   []models.Segment

	// Name prompt for create and rename
	mode      inputMode
	input     textinput.Model
	inputNode models.Path // parent for creation, node for rename

	confirm confirm.Model

	// In-flight capture, if any
	recording     *recorder.Recording
	recordingPath models.Path

	transcribing  bool
	statusMessage string
	statusIsError bool
	loaded        bool
}

// New creates a new TUI model.
func New(ctx context.Context, svc *service.Service) Model {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		service:    svc,
		ctx:        ctx,
		keys:       keys,
		help:       help.New(),
		expanded:   make(map[string]bool),
		transcript: viewport.New(0, 0),
		input:      ti,
		confirm:    confirm.New(),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{fetchTreeCmd(m.service)}
	if current, ok := m.service.Current(); ok {
		cmds = append(cmds, fetchSegmentsCmd(m.service, current))
	}
	return tea.Batch(cmds...)
}

// selectedNode returns the node under the cursor, or nil for an empty tree.
func (m *Model) selectedNode() *displayNode {
	if m.cursor < 0 || m.cursor >= len(m.displayNodes) {
		return nil
	}
	return m.displayNodes[m.cursor]
}

// targetFolder is where new nodes go: the folder under the cursor, the parent of the
// conversation under the cursor, or the root.
func (m *Model) targetFolder() models.Path {
	node := m.selectedNode()
	if node == nil {
		return nil
	}
	if node.isFolder() {
		return node.entry.Path
	}
	return node.entry.Path.Parent()
}
