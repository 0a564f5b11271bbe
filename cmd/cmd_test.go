package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-convo/pkg/hierarchy"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	svc, err := service.New(&service.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func execute(t *testing.T, c *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetIn(strings.NewReader(stdin))
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestSplitTarget(t *testing.T) {
	parent, name := splitTarget([]string{"Work/Meetings/Standup"})
	assert.Equal(t, models.Path{"Work", "Meetings"}, parent)
	assert.Equal(t, "Standup", name)

	parent, name = splitTarget([]string{"Work", "Design review"})
	assert.Equal(t, models.Path{"Work"}, parent)
	assert.Equal(t, "Design review", name)

	parent, name = splitTarget([]string{"Inbox"})
	assert.Empty(t, parent)
	assert.Equal(t, "Inbox", name)
}

func TestDescribeAddsHints(t *testing.T) {
	err := &hierarchy.OpError{Op: "create conversation", Path: "Work/Standup", Err: hierarchy.ErrNameConflict}
	assert.Equal(t, "create conversation Work/Standup: name already exists (choose a name not used by a sibling)", Describe(err))
	assert.Equal(t, "boom", Describe(errors.New("boom")))
}

func TestNodeCommands(t *testing.T) {
	svc := newTestService(t)

	out, err := execute(t, NewFolderCmd(&svc), "", "Work")
	require.NoError(t, err)
	assert.Contains(t, out, "Created folder Work")

	_, err = execute(t, NewNewCmd(&svc), "", "Work", "Standup")
	require.NoError(t, err)
	assert.True(t, svc.Store.IsConversation(models.Path{"Work", "Standup"}))

	_, err = execute(t, NewNewCmd(&svc), "", "Work/Standup")
	assert.ErrorIs(t, err, hierarchy.ErrNameConflict)

	out, err = execute(t, NewRenameCmd(&svc), "", "Work/Standup", "DailySync")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed Work/Standup to Work/DailySync")

	out, err = execute(t, NewDeleteCmd(&svc), "", "--yes", "Work")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted Work")
	assert.False(t, svc.Store.IsFolder(models.Path{"Work"}))

	_, err = execute(t, NewDeleteCmd(&svc), "", "--yes", "Missing")
	assert.ErrorIs(t, err, hierarchy.ErrInvalidPath)
}

func TestAppendAndShow(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateConversation(nil, "Inbox"))

	_, err := execute(t, NewAppendCmd(&svc), "", "Inbox", "typed", "words")
	require.NoError(t, err)
	_, err = execute(t, NewAppendCmd(&svc), "  piped text\n", "--stdin", "Inbox")
	require.NoError(t, err)
	_, err = execute(t, NewAppendCmd(&svc), "   ", "--stdin", "Inbox")
	assert.Error(t, err)

	out, err := execute(t, NewShowCmd(&svc), "", "Inbox")
	require.NoError(t, err)
	assert.Contains(t, out, "typed words")
	assert.Contains(t, out, "piped text")

	out, err = execute(t, NewShowCmd(&svc), "", "--json", "Inbox")
	require.NoError(t, err)
	var segments []models.Segment
	require.NoError(t, json.Unmarshal([]byte(out), &segments))
	require.Len(t, segments, 2)
	assert.Equal(t, "piped text", segments[1].Text)
}

func TestListFormats(t *testing.T) {
	svc := newTestService(t)

	out, err := execute(t, NewListCmd(&svc), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing here yet")

	require.NoError(t, svc.CreateFolder(nil, "Work"))
	require.NoError(t, svc.CreateConversation(models.Path{"Work"}, "Standup"))
	_, err = svc.AppendTranscript(models.Path{"Work", "Standup"}, "hi")
	require.NoError(t, err)

	out, err = execute(t, NewListCmd(&svc), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Work/")
	assert.Contains(t, out, "  Standup *", "the selected conversation is marked")
	assert.NotContains(t, out, "never")

	out, err = execute(t, NewListCmd(&svc), "", "--format", "yaml")
	require.NoError(t, err)
	var entries []*models.Entry
	require.NoError(t, yaml.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Children[0].Segments)

	_, err = execute(t, NewListCmd(&svc), "", "--format", "xml")
	assert.Error(t, err)
	_, err = execute(t, NewListCmd(&svc), "", "--sort", "size")
	assert.Error(t, err)
}

func TestEditAppliesBulkChanges(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateConversation(nil, "Inbox"))
	keep, err := svc.AppendTranscript(models.Path{"Inbox"}, "keep me")
	require.NoError(t, err)
	_, err = svc.AppendTranscript(models.Path{"Inbox"}, "drop me")
	require.NoError(t, err)

	// The "editor" overwrites the edit file with prepared content.
	edited := filepath.Join(t.TempDir(), "edited.md")
	require.NoError(t, os.WriteFile(edited, []byte("### "+keep.ID+"\nkept and fixed\n\n### new\nadded later\n"), 0644))
	svc.Config.Editor = "cp " + edited

	out, err := execute(t, NewEditCmd(&svc), "", "Inbox")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 2 segment(s)")

	segments, err := svc.Segments(models.Path{"Inbox"})
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, keep.ID, segments[0].ID)
	assert.Equal(t, "kept and fixed", segments[0].Text)
	assert.Equal(t, "added later", segments[1].Text)

	results, err := svc.Search("drop")
	require.NoError(t, err)
	assert.Empty(t, results, "the index follows bulk edits")
}

func TestSearchCommand(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateConversation(nil, "Inbox"))
	_, err := svc.AppendTranscript(models.Path{"Inbox"}, "quarterly budget review")
	require.NoError(t, err)

	out, err := execute(t, NewSearchCmd(&svc), "", "budget")
	require.NoError(t, err)
	assert.Contains(t, out, "Inbox")

	out, err = execute(t, NewSearchCmd(&svc), "", "nothing-like-this")
	require.NoError(t, err)
	assert.Contains(t, out, "No matches")
}

func TestCommandsWithoutService(t *testing.T) {
	assert.False(t, NeedsService(NewVersionCmd()))
	assert.False(t, NeedsService(NewSplitCmd()))
	var svc *service.Service
	assert.True(t, NeedsService(NewListCmd(&svc)))

	out, err := execute(t, NewVersionCmd(), "", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}
