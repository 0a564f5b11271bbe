// Package artifacts derives the on-disk locations of a conversation's transcripts and
// recordings from its hierarchy path.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsolo1/grove-convo/pkg/models"
)

const (
	// Separator joins path names into a directory name.
	Separator = "_"

	TranscriptsSuffix = "_transcripts"
	RecordingsSuffix  = "_recordings"

	// MaxDirNameLength is the longest single directory name (NAME_MAX) common
	// filesystems accept, in bytes.
	MaxDirNameLength = 255
)

// Resolver maps hierarchy paths to artifact directories under Root.
type Resolver struct {
	Root string
}

// NewResolver returns a resolver rooted at dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{Root: dir}
}

// Key returns the joined directory stem for p. Two conversations with the same key
// would share artifact directories.
func (r *Resolver) Key(p models.Path) string {
	return strings.Join(p, Separator)
}

// Fits reports whether both artifact directory names of p are within MaxDirNameLength.
func (r *Resolver) Fits(p models.Path) bool {
	return len(r.Key(p))+max(len(TranscriptsSuffix), len(RecordingsSuffix)) <= MaxDirNameLength
}

// TranscriptDir returns the directory holding the segment files for p.
func (r *Resolver) TranscriptDir(p models.Path) string {
	if p.IsRoot() {
		return ""
	}
	return filepath.Join(r.Root, r.Key(p)+TranscriptsSuffix)
}

// RecordingsDir returns the directory holding the recording chunks for p.
func (r *Resolver) RecordingsDir(p models.Path) string {
	if p.IsRoot() {
		return ""
	}
	return filepath.Join(r.Root, r.Key(p)+RecordingsSuffix)
}

// Dirs returns both artifact directories of p.
func (r *Resolver) Dirs(p models.Path) []string {
	if p.IsRoot() {
		return nil
	}
	return []string{r.TranscriptDir(p), r.RecordingsDir(p)}
}

// Move is a planned directory rename.
type Move struct {
	From string
	To   string
}

// PlanRename lists the directory moves needed when each path in paths is relocated from
// under oldPrefix to under newPrefix. Only directories that exist are included. It fails
// if a destination is already occupied.
func (r *Resolver) PlanRename(paths []models.Path, oldPrefix, newPrefix models.Path) ([]Move, error) {
	var moves []Move
	for _, p := range paths {
		np := p.Rebase(oldPrefix, newPrefix)
		from, to := r.Dirs(p), r.Dirs(np)
		for i := range from {
			if _, err := os.Stat(from[i]); err != nil {
				continue
			}
			if _, err := os.Stat(to[i]); err == nil {
				return nil, fmt.Errorf("destination %s already exists", to[i])
			}
			moves = append(moves, Move{From: from[i], To: to[i]})
		}
	}
	return moves, nil
}

// ExistingDirs lists the artifact directories of paths that exist on disk.
func (r *Resolver) ExistingDirs(paths []models.Path) []string {
	var out []string
	for _, p := range paths {
		for _, dir := range r.Dirs(p) {
			if _, err := os.Stat(dir); err == nil {
				out = append(out, dir)
			}
		}
	}
	return out
}
