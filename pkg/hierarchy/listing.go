package hierarchy

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattsolo1/grove-convo/pkg/models"
)

// SortOrder selects how listings order siblings.
type SortOrder string

const (
	// SortModified puts the most recently modified entries first.
	SortModified SortOrder = "modified"
	// SortName orders entries alphabetically.
	SortName SortOrder = "name"
	// SortInsertion keeps the order entries were created in.
	SortInsertion SortOrder = "insertion"
)

// LastModified returns when the conversation at p last had its transcripts written, or
// for a folder the latest time among its descendants. Unknown paths and conversations
// without transcripts report the zero time.
func (s *Store) LastModified(p models.Path) time.Time {
	node, ok := s.Resolve(p)
	if !ok {
		return time.Time{}
	}
	return s.lastModified(p, node)
}

func (s *Store) lastModified(p models.Path, node models.Node) time.Time {
	switch n := node.(type) {
	case *models.Conversation:
		info, err := os.Stat(s.resolver.TranscriptDir(p))
		if err != nil {
			return time.Time{}
		}
		return info.ModTime()
	case *models.Folder:
		var latest time.Time
		for _, name := range n.Names() {
			child, _ := n.Child(name)
			if t := s.lastModified(p.Join(name), child); t.After(latest) {
				latest = t
			}
		}
		return latest
	}
	return time.Time{}
}

// Children lists the direct children of the folder at p.
func (s *Store) Children(p models.Path, order SortOrder) ([]*models.Entry, error) {
	tree, err := s.Tree(p, order, 1)
	if err != nil {
		return nil, err
	}
	if tree.Kind != models.KindFolder {
		return nil, &OpError{Op: "list", Path: p.String(), Err: ErrNotFolder}
	}
	return tree.Children, nil
}

// Tree returns the subtree at p, siblings sorted by order. depth limits how many levels
// below p are expanded; zero or less means unlimited. Modification times always account
// for the whole subtree.
func (s *Store) Tree(p models.Path, order SortOrder, depth int) (*models.Entry, error) {
	node, ok := s.Resolve(p)
	if !ok {
		return nil, &OpError{Op: "list", Path: p.String(), Err: ErrInvalidPath}
	}
	return s.entry(p, node, order, depth), nil
}

func (s *Store) entry(p models.Path, node models.Node, order SortOrder, depth int) *models.Entry {
	e := &models.Entry{
		Path: p.Clone(),
		Name: p.Base(),
		Kind: models.KindOf(node),
	}

	folder, ok := node.(*models.Folder)
	if !ok {
		e.ModifiedAt = s.lastModified(p, node)
		e.Segments = countSegmentFiles(s.resolver.TranscriptDir(p))
		return e
	}

	for _, name := range folder.Names() {
		child, _ := folder.Child(name)
		ce := s.entry(p.Join(name), child, order, depth-1)
		if ce.ModifiedAt.After(e.ModifiedAt) {
			e.ModifiedAt = ce.ModifiedAt
		}
		if depth == 1 {
			ce.Children = nil
		}
		e.Children = append(e.Children, ce)
	}
	sortEntries(e.Children, order)
	return e
}

func sortEntries(entries []*models.Entry, order SortOrder) {
	switch order {
	case SortModified:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
		})
	case SortName:
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
		})
	}
}

func countSegmentFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := models.SegmentIDFromFile(e.Name()); ok {
			count++
		}
	}
	return count
}
