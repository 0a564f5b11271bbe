package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// ChunkPrefix and ChunkExt frame the numbered audio files written into a recordings dir.
	ChunkPrefix = "recording_chunk_"
	ChunkExt    = ".wav"
)

// ChunkName returns the file name of chunk n.
func ChunkName(n int) string {
	return ChunkPrefix + strconv.Itoa(n) + ChunkExt
}

// ChunkNumber parses the number out of a chunk file name.
func ChunkNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, ChunkPrefix) || !strings.HasSuffix(name, ChunkExt) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, ChunkPrefix), ChunkExt))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Chunks returns the chunk files in dir ordered by chunk number, so chunk 10 follows
// chunk 9. A missing directory has no chunks.
func Chunks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}

	type chunk struct {
		n    int
		path string
	}
	var chunks []chunk
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, ok := ChunkNumber(e.Name())
		if !ok {
			continue
		}
		chunks = append(chunks, chunk{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].n < chunks[j].n })

	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = c.path
	}
	return paths, nil
}

// NextChunk returns the number to give the next chunk written into dir.
func NextChunk(dir string) (int, error) {
	chunks, err := Chunks(dir)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 1, nil
	}
	n, _ := ChunkNumber(filepath.Base(chunks[len(chunks)-1]))
	return n + 1, nil
}
