//go:build integration

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-convo/pkg/models"
)

func run(t *testing.T, configFile string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configFile}, args...))
	require.NoError(t, root.Execute(), "convo %v: %s", args, out.String())
	return out.String()
}

func TestIntegration(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=1 to run.")
	}

	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")
	configFile := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("data_dir: "+dataDir+"\nnotify: false\n"), 0644))

	t.Run("CreateAndAppend", func(t *testing.T) {
		run(t, configFile, "folder", "Work")
		run(t, configFile, "new", "Work/Standup")
		run(t, configFile, "append", "Work/Standup", "Hello")
		run(t, configFile, "append", "Work/Standup", "World")
	})

	t.Run("RenameKeepsTranscript", func(t *testing.T) {
		run(t, configFile, "rename", "Work/Standup", "DailySync")

		var segments []models.Segment
		require.NoError(t, json.Unmarshal([]byte(run(t, configFile, "show", "--json", "Work/DailySync")), &segments))
		require.Len(t, segments, 2)
		assert.Equal(t, "Hello", segments[0].Text)
		assert.Equal(t, "World", segments[1].Text)
		assert.NoDirExists(t, filepath.Join(dataDir, "Work_Standup_transcripts"))
	})

	t.Run("ListAndSearch", func(t *testing.T) {
		var entries []*models.Entry
		require.NoError(t, json.Unmarshal([]byte(run(t, configFile, "list", "--format", "json", "--sort", "name")), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "Work", entries[0].Name)
		require.Len(t, entries[0].Children, 1)
		assert.Equal(t, 2, entries[0].Children[0].Segments)

		assert.Contains(t, run(t, configFile, "search", "hello"), "Work/DailySync")
	})

	t.Run("Delete", func(t *testing.T) {
		run(t, configFile, "delete", "--yes", "Work")
		assert.Contains(t, run(t, configFile, "list"), "Nothing here yet")
		assert.NoDirExists(t, filepath.Join(dataDir, "Work_DailySync_transcripts"))
	})
}
