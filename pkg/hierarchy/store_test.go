package hierarchy

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-convo/pkg/artifacts"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/session"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return Open(filepath.Join(dir, DefaultFileName), artifacts.NewResolver(dir)), dir
}

func mkdirs(t *testing.T, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
}

func TestCreateEnforcesUniqueness(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.CreateFolder(nil, "Work"))
	err := store.CreateFolder(nil, "Work")
	assert.ErrorIs(t, err, ErrNameConflict)

	err = store.CreateConversation(nil, "Work")
	assert.ErrorIs(t, err, ErrNameConflict, "a conversation cannot share a folder's name")

	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Standup"))
	assert.ErrorIs(t, store.CreateConversation(models.Path{"Work"}, "Standup"), ErrNameConflict)
	assert.ErrorIs(t, store.CreateFolder(models.Path{"Work"}, " Standup "), ErrNameConflict, "names are trimmed before comparison")

	assert.Equal(t, []string{"Standup"}, mustFolder(t, store, models.Path{"Work"}).Names())
}

func TestCreateRejectsBadTargets(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.CreateConversation(nil, "Inbox"))

	assert.ErrorIs(t, store.CreateFolder(models.Path{"Inbox"}, "x"), ErrNotFolder)
	assert.ErrorIs(t, store.CreateFolder(models.Path{"Missing"}, "x"), ErrInvalidPath)
	assert.ErrorIs(t, store.CreateFolder(nil, ""), ErrInvalidName)
	assert.ErrorIs(t, store.CreateFolder(nil, "a/b"), ErrInvalidName)

	var opErr *OpError
	require.True(t, errors.As(store.CreateFolder(models.Path{"Inbox"}, "x"), &opErr))
	assert.Equal(t, "create folder", opErr.Op)
	assert.Equal(t, "Inbox", opErr.Path)
}

func TestCreateConversationSelectsIt(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.CreateFolder(nil, "Work"))
	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Standup"))

	current, ok := store.Session().Current()
	require.True(t, ok)
	assert.Equal(t, models.Path{"Work", "Standup"}, current)
}

func TestPersistenceRoundTrip(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.CreateFolder(nil, "Work"))
	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Standup"))
	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Retro"))
	require.NoError(t, store.CreateFolder(nil, "Empty"))
	require.NoError(t, store.CreateConversation(nil, "Inbox"))

	reopened := Open(filepath.Join(dir, DefaultFileName), artifacts.NewResolver(dir))

	want, err := json.Marshal(store.Root())
	require.NoError(t, err)
	got, err := json.Marshal(reopened.Root())
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
	assert.True(t, reopened.IsFolder(models.Path{"Empty"}))
	assert.True(t, reopened.IsConversation(models.Path{"Inbox"}))

	data, err := os.ReadFile(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"Work\": {", "file is indented with four spaces")
}

func TestLoadMissingAndCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, DefaultFileName)

	store := Open(file, artifacts.NewResolver(dir))
	assert.Equal(t, 0, store.Root().Len())

	require.NoError(t, os.WriteFile(file, []byte(`{"Work": `), 0644))
	store = Open(file, artifacts.NewResolver(dir))
	assert.Equal(t, 0, store.Root().Len())

	backups, err := filepath.Glob(file + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, `{"Work": `, string(data))
}

func TestRenameConversationMovesArtifacts(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.CreateFolder(nil, "Work"))
	old := models.Path{"Work", "Standup"}
	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Standup"))
	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Retro"))
	mkdirs(t, store.TranscriptDir(old), store.RecordingsDir(old))
	require.NoError(t, os.WriteFile(filepath.Join(store.TranscriptDir(old), "x.txt"), []byte("hi"), 0644))

	require.NoError(t, store.Rename(old, "DailySync"))

	renamed := models.Path{"Work", "DailySync"}
	assert.True(t, store.IsConversation(renamed))
	assert.False(t, store.IsConversation(old))
	assert.Equal(t, []string{"DailySync", "Retro"}, mustFolder(t, store, models.Path{"Work"}).Names(), "rename keeps position")

	assert.NoDirExists(t, store.TranscriptDir(old))
	assert.NoDirExists(t, store.RecordingsDir(old))
	assert.FileExists(t, filepath.Join(store.TranscriptDir(renamed), "x.txt"))
	assert.DirExists(t, store.RecordingsDir(renamed))

	current, ok := store.Session().Current()
	require.True(t, ok)
	assert.Equal(t, models.Path{"Work", "Retro"}, current, "selection of an unrelated conversation is kept")
}

func TestRenameFolderMovesDescendantArtifacts(t *testing.T) {
	sess := session.New()
	dir := t.TempDir()
	store := Open(filepath.Join(dir, DefaultFileName), artifacts.NewResolver(dir), WithSession(sess))

	require.NoError(t, store.CreateFolder(nil, "Work"))
	require.NoError(t, store.CreateFolder(models.Path{"Work"}, "Team"))
	require.NoError(t, store.CreateConversation(models.Path{"Work", "Team"}, "Standup"))
	leaf := models.Path{"Work", "Team", "Standup"}
	mkdirs(t, store.TranscriptDir(leaf))

	require.NoError(t, store.Rename(models.Path{"Work"}, "Job"))

	moved := models.Path{"Job", "Team", "Standup"}
	assert.True(t, store.IsConversation(moved))
	assert.NoDirExists(t, store.TranscriptDir(leaf))
	assert.DirExists(t, store.TranscriptDir(moved))

	current, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, moved, current, "selection follows the renamed folder")
}

func TestRenameRejectsConflicts(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.CreateConversation(nil, "A"))
	require.NoError(t, store.CreateConversation(nil, "B"))

	assert.ErrorIs(t, store.Rename(models.Path{"A"}, "B"), ErrNameConflict)
	assert.ErrorIs(t, store.Rename(models.Path{"Missing"}, "C"), ErrInvalidPath)
	assert.ErrorIs(t, store.Rename(nil, "C"), ErrRootImmutable)
	assert.ErrorIs(t, store.Rename(models.Path{"A"}, ""), ErrInvalidName)

	// A leftover directory at the destination blocks the rename without touching anything.
	mkdirs(t, store.TranscriptDir(models.Path{"A"}), store.TranscriptDir(models.Path{"C"}))
	assert.ErrorIs(t, store.Rename(models.Path{"A"}, "C"), ErrArtifactConflict)
	assert.True(t, store.IsConversation(models.Path{"A"}))
	assert.DirExists(t, store.TranscriptDir(models.Path{"A"}))
}

func TestArtifactKeyCollision(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.CreateConversation(nil, "a_b"))
	require.NoError(t, store.CreateFolder(nil, "a"))

	err := store.CreateConversation(models.Path{"a"}, "b")
	assert.ErrorIs(t, err, ErrArtifactConflict)
	assert.False(t, store.IsConversation(models.Path{"a", "b"}))
}

func TestOverlongArtifactNamesRejected(t *testing.T) {
	store, _ := newTestStore(t)

	long := strings.Repeat("a", 250)
	err := store.CreateConversation(nil, long)
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.False(t, store.IsConversation(models.Path{long}))

	limit := strings.Repeat("b", artifacts.MaxDirNameLength-len(artifacts.TranscriptsSuffix))
	require.NoError(t, store.CreateConversation(nil, limit))
	mkdirs(t, store.TranscriptDir(models.Path{limit}), store.RecordingsDir(models.Path{limit}))

	folder := strings.Repeat("f", 150)
	require.NoError(t, store.CreateFolder(nil, folder))
	err = store.CreateConversation(models.Path{folder}, strings.Repeat("c", 150))
	assert.ErrorIs(t, err, ErrInvalidName, "the joined path is what has to fit")

	require.NoError(t, store.CreateConversation(models.Path{folder}, "Standup"))
	err = store.Rename(models.Path{folder, "Standup"}, strings.Repeat("d", 100))
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.True(t, store.IsConversation(models.Path{folder, "Standup"}))

	err = store.Rename(models.Path{folder}, strings.Repeat("g", 240))
	assert.ErrorIs(t, err, ErrInvalidName, "renaming a folder lengthens every descendant")
	assert.True(t, store.IsFolder(models.Path{folder}))
}

func TestFailedCommitLeavesStateUntouched(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.CreateConversation(nil, "Standup"))
	old := models.Path{"Standup"}
	mkdirs(t, store.TranscriptDir(old))

	// Replace the hierarchy file with a directory so the final swap fails.
	require.NoError(t, os.Remove(store.File()))
	mkdirs(t, filepath.Join(store.File(), "blocker"))

	err := store.Rename(old, "DailySync")
	require.Error(t, err)

	assert.True(t, store.IsConversation(old))
	assert.False(t, store.IsConversation(models.Path{"DailySync"}))
	assert.DirExists(t, store.TranscriptDir(old), "moved directories are restored")
	assert.NoDirExists(t, store.TranscriptDir(models.Path{"DailySync"}))
}

func TestDeleteIsTotal(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.CreateFolder(nil, "Work"))
	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Standup"))
	require.NoError(t, store.CreateFolder(models.Path{"Work"}, "Old"))
	require.NoError(t, store.CreateConversation(models.Path{"Work", "Old"}, "Retro"))
	require.NoError(t, store.CreateConversation(nil, "Inbox"))

	a, b := models.Path{"Work", "Standup"}, models.Path{"Work", "Old", "Retro"}
	mkdirs(t, store.TranscriptDir(a), store.RecordingsDir(a), store.TranscriptDir(b), store.TranscriptDir(models.Path{"Inbox"}))

	require.NoError(t, store.Delete(models.Path{"Work"}))

	_, ok := store.Resolve(models.Path{"Work"})
	assert.False(t, ok)
	assert.NoDirExists(t, store.TranscriptDir(a))
	assert.NoDirExists(t, store.RecordingsDir(a))
	assert.NoDirExists(t, store.TranscriptDir(b))
	assert.DirExists(t, store.TranscriptDir(models.Path{"Inbox"}))

	_, selected := store.Session().Current()
	assert.False(t, selected)

	trash, err := filepath.Glob(filepath.Join(dir, ".trash-*"))
	require.NoError(t, err)
	assert.Empty(t, trash)

	reopened := Open(store.File(), store.Resolver())
	assert.Equal(t, []string{"Inbox"}, reopened.Root().Names())

	assert.ErrorIs(t, store.Delete(models.Path{"Work"}), ErrInvalidPath)
	assert.ErrorIs(t, store.Delete(nil), ErrRootImmutable)
}

func TestChildrenAndTree(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.CreateFolder(nil, "Work"))
	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Older"))
	require.NoError(t, store.CreateConversation(models.Path{"Work"}, "Newer"))
	require.NoError(t, store.CreateConversation(nil, "Inbox"))

	older, newer := models.Path{"Work", "Older"}, models.Path{"Work", "Newer"}
	mkdirs(t, store.TranscriptDir(older), store.TranscriptDir(newer))
	require.NoError(t, os.WriteFile(filepath.Join(store.TranscriptDir(newer), "20240101-120000.000000.txt"), []byte("x"), 0644))
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(store.TranscriptDir(older), base, base))
	require.NoError(t, os.Chtimes(store.TranscriptDir(newer), base.Add(time.Minute), base.Add(time.Minute)))

	children, err := store.Children(models.Path{"Work"}, SortModified)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Newer", children[0].Name)
	assert.Equal(t, 1, children[0].Segments)
	assert.Equal(t, "Older", children[1].Name)

	children, err = store.Children(models.Path{"Work"}, SortName)
	require.NoError(t, err)
	assert.Equal(t, "Newer", children[0].Name)

	children, err = store.Children(models.Path{"Work"}, SortInsertion)
	require.NoError(t, err)
	assert.Equal(t, "Older", children[0].Name)

	root, err := store.Tree(nil, SortModified, 0)
	require.NoError(t, err)
	assert.Equal(t, "Work", root.Children[0].Name, "folders take the newest time of their descendants")
	assert.Len(t, root.Children[0].Children, 2)

	shallow, err := store.Tree(nil, SortInsertion, 1)
	require.NoError(t, err)
	assert.Nil(t, shallow.Children[0].Children)

	_, err = store.Children(models.Path{"Inbox"}, SortName)
	assert.ErrorIs(t, err, ErrNotFolder)
	_, err = store.Tree(models.Path{"Nope"}, SortName, 0)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func mustFolder(t *testing.T, store *Store, p models.Path) *models.Folder {
	t.Helper()
	n, ok := store.Resolve(p)
	require.True(t, ok)
	f, ok := n.(*models.Folder)
	require.True(t, ok)
	return f
}
