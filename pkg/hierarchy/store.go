// Package hierarchy maintains the folder/conversation tree, mirrors it to a JSON file,
// and keeps each conversation's artifact directories in step with renames and deletes.
package hierarchy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-convo/internal/fsutil"
	"github.com/mattsolo1/grove-convo/pkg/artifacts"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/session"
)

// DefaultFileName is the name of the hierarchy document inside the data directory.
const DefaultFileName = "conversations.json"

// Store owns the in-memory tree and is the only writer of the hierarchy file.
type Store struct {
	mu       sync.RWMutex
	file     string
	root     *models.Folder
	resolver *artifacts.Resolver
	session  *session.Session
	logger   logrus.FieldLogger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSession attaches the session whose selection follows creates, renames and deletes.
func WithSession(sess *session.Session) Option {
	return func(s *Store) {
		s.session = sess
	}
}

// WithLogger sets the logger used for non-fatal problems.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store for file with an empty tree. Call Load to read the file.
func New(file string, resolver *artifacts.Resolver, opts ...Option) *Store {
	s := &Store{
		file:     file,
		root:     models.NewFolder(),
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.session == nil {
		s.session = session.New()
	}
	if s.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		s.logger = logger
	}
	return s
}

// Open creates a store and loads its file.
func Open(file string, resolver *artifacts.Resolver, opts ...Option) *Store {
	s := New(file, resolver, opts...)
	s.Load()
	return s
}

// Load replaces the in-memory tree with the file contents. A missing file yields an
// empty tree. An unreadable or malformed file also yields an empty tree; the bad file is
// copied aside first so the next save does not destroy it.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.root = models.NewFolder()

	data, err := os.ReadFile(s.file)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("file", s.file).Warn("Could not read hierarchy, starting empty")
		return
	}

	root := models.NewFolder()
	if err := json.Unmarshal(data, root); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.file, s.now().Unix())
		if werr := os.WriteFile(backup, data, 0644); werr != nil {
			s.logger.WithError(werr).WithField("file", backup).Warn("Could not back up malformed hierarchy")
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"file":   s.file,
			"backup": backup,
		}).Warn("Malformed hierarchy, starting empty")
		return
	}
	s.root = root
}

// File returns the path of the hierarchy document.
func (s *Store) File() string {
	return s.file
}

// Resolver returns the artifact path resolver.
func (s *Store) Resolver() *artifacts.Resolver {
	return s.resolver
}

// Session returns the session the store keeps in step.
func (s *Store) Session() *session.Session {
	return s.session
}

// Root returns a copy of the whole tree.
func (s *Store) Root() *models.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Clone()
}

// Resolve walks from the root along p. It returns false if any name is missing or an
// intermediate node is a conversation. The returned node must not be modified.
func (s *Store) Resolve(p models.Path) (models.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return resolveIn(s.root, p)
}

// IsConversation reports whether p resolves to a conversation leaf.
func (s *Store) IsConversation(p models.Path) bool {
	n, ok := s.Resolve(p)
	if !ok {
		return false
	}
	_, isConv := n.(*models.Conversation)
	return isConv
}

// IsFolder reports whether p resolves to a folder. The root is a folder.
func (s *Store) IsFolder(p models.Path) bool {
	n, ok := s.Resolve(p)
	if !ok {
		return false
	}
	_, isFolder := n.(*models.Folder)
	return isFolder
}

// Conversations lists every conversation path in the tree.
func (s *Store) Conversations() []models.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Conversations(s.root, nil)
}

// TranscriptDir returns the transcript directory for p.
func (s *Store) TranscriptDir(p models.Path) string {
	return s.resolver.TranscriptDir(p)
}

// RecordingsDir returns the recordings directory for p.
func (s *Store) RecordingsDir(p models.Path) string {
	return s.resolver.RecordingsDir(p)
}

// CreateFolder adds an empty folder named name under parent.
func (s *Store) CreateFolder(parent models.Path, name string) error {
	_, err := s.insert("create folder", parent, name, models.NewFolder())
	return err
}

// CreateConversation adds a conversation named name under parent and selects it.
func (s *Store) CreateConversation(parent models.Path, name string) error {
	p, err := s.insert("create conversation", parent, name, &models.Conversation{})
	if err != nil {
		return err
	}
	s.session.Select(p)
	return nil
}

func (s *Store) insert(op string, parent models.Path, name string, node models.Node) (models.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = models.NormalizeName(name)
	p := parent.Join(name)
	if err := models.ValidateName(name); err != nil {
		return nil, &OpError{Op: op, Path: p.String(), Err: fmt.Errorf("%w: %v", ErrInvalidName, err)}
	}

	next := s.root.Clone()
	folder, err := folderIn(next, parent)
	if err != nil {
		return nil, &OpError{Op: op, Path: parent.String(), Err: err}
	}
	if folder.Has(name) {
		return nil, &OpError{Op: op, Path: p.String(), Err: ErrNameConflict}
	}
	if err := folder.Insert(name, node); err != nil {
		return nil, &OpError{Op: op, Path: p.String(), Err: err}
	}
	if err := s.checkArtifactKeys(next); err != nil {
		return nil, &OpError{Op: op, Path: p.String(), Err: err}
	}

	if err := s.commit(next, nil); err != nil {
		return nil, &OpError{Op: op, Path: p.String(), Err: err}
	}
	s.logger.WithField("path", p.String()).Debug("Created " + string(models.KindOf(node)))
	return p, nil
}

// Rename gives the node at p a new name among its siblings. The subtree is kept, and the
// artifact directories of the node and of every conversation beneath it are moved to
// their new derived locations.
func (s *Store) Rename(p models.Path, newName string) error {
	const op = "rename"
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsRoot() {
		return &OpError{Op: op, Err: ErrRootImmutable}
	}
	newName = models.NormalizeName(newName)
	newPath := p.Parent().Join(newName)
	if err := models.ValidateName(newName); err != nil {
		return &OpError{Op: op, Path: p.String(), Err: fmt.Errorf("%w: %v", ErrInvalidName, err)}
	}

	next := s.root.Clone()
	parent, err := folderIn(next, p.Parent())
	if err != nil {
		return &OpError{Op: op, Path: p.String(), Err: err}
	}
	node, ok := parent.Child(p.Base())
	if !ok {
		return &OpError{Op: op, Path: p.String(), Err: ErrInvalidPath}
	}
	if parent.Has(newName) {
		return &OpError{Op: op, Path: newPath.String(), Err: ErrNameConflict}
	}
	if err := parent.Rename(p.Base(), newName); err != nil {
		return &OpError{Op: op, Path: p.String(), Err: err}
	}
	if err := s.checkArtifactKeys(next); err != nil {
		return &OpError{Op: op, Path: newPath.String(), Err: err}
	}

	moves, err := s.resolver.PlanRename(models.Conversations(node, p), p, newPath)
	if err != nil {
		return &OpError{Op: op, Path: p.String(), Err: fmt.Errorf("%w: %v", ErrArtifactConflict, err)}
	}

	if err := s.commit(next, moves); err != nil {
		return &OpError{Op: op, Path: p.String(), Err: err}
	}
	s.session.Relocate(p, newPath)
	s.logger.WithFields(logrus.Fields{
		"path":  p.String(),
		"to":    newPath.String(),
		"moves": len(moves),
	}).Debug("Renamed node")
	return nil
}

// Delete removes the node at p with its subtree, clears the selection, and removes the
// artifact directories of every conversation that was removed.
func (s *Store) Delete(p models.Path) error {
	const op = "delete"
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsRoot() {
		return &OpError{Op: op, Err: ErrRootImmutable}
	}

	next := s.root.Clone()
	parent, err := folderIn(next, p.Parent())
	if err != nil {
		return &OpError{Op: op, Path: p.String(), Err: err}
	}
	node, ok := parent.Remove(p.Base())
	if !ok {
		return &OpError{Op: op, Path: p.String(), Err: ErrInvalidPath}
	}

	dirs := s.resolver.ExistingDirs(models.Conversations(node, p))
	var moves []artifacts.Move
	var trash string
	if len(dirs) > 0 {
		trash = filepath.Join(s.resolver.Root, fmt.Sprintf(".trash-%d", s.now().UnixNano()))
		if err := os.MkdirAll(trash, 0755); err != nil {
			return &OpError{Op: op, Path: p.String(), Err: fmt.Errorf("create trash dir: %w", err)}
		}
		for _, dir := range dirs {
			moves = append(moves, artifacts.Move{From: dir, To: filepath.Join(trash, filepath.Base(dir))})
		}
	}

	if err := s.commit(next, moves); err != nil {
		if trash != "" {
			_ = os.Remove(trash)
		}
		return &OpError{Op: op, Path: p.String(), Err: err}
	}
	s.session.Deselect()

	if trash != "" {
		if err := os.RemoveAll(trash); err != nil {
			s.logger.WithError(err).WithField("dir", trash).Warn("Could not remove deleted artifacts")
		}
	}
	s.logger.WithFields(logrus.Fields{
		"path": p.String(),
		"dirs": len(dirs),
	}).Debug("Deleted node")
	return nil
}

// commit stages the serialized tree, applies the directory moves, then swaps the file
// in. On any failure the moves already applied are reversed and nothing changes.
func (s *Store) commit(next *models.Folder, moves []artifacts.Move) error {
	data, err := json.MarshalIndent(next, "", "    ")
	if err != nil {
		return fmt.Errorf("encode hierarchy: %w", err)
	}
	pending, err := fsutil.Stage(s.file, data, 0644)
	if err != nil {
		return fmt.Errorf("stage hierarchy: %w", err)
	}

	var applied []artifacts.Move
	for _, m := range moves {
		if err := os.Rename(m.From, m.To); err != nil {
			s.rollback(applied)
			pending.Discard()
			return fmt.Errorf("move %s: %w", filepath.Base(m.From), err)
		}
		applied = append(applied, m)
	}

	if err := pending.Commit(); err != nil {
		s.rollback(applied)
		pending.Discard()
		return fmt.Errorf("save hierarchy: %w", err)
	}
	s.root = next
	return nil
}

func (s *Store) rollback(applied []artifacts.Move) {
	for i := len(applied) - 1; i >= 0; i-- {
		m := applied[i]
		if err := os.Rename(m.To, m.From); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"from": m.To,
				"to":   m.From,
			}).Error("Could not restore artifact directory")
		}
	}
}

// checkArtifactKeys rejects trees in which two conversations derive the same directories,
// or in which a conversation's directory name would be too long to create.
func (s *Store) checkArtifactKeys(root *models.Folder) error {
	seen := make(map[string]models.Path)
	for _, p := range models.Conversations(root, nil) {
		if !s.resolver.Fits(p) {
			return fmt.Errorf("%w: artifact directory name for %q exceeds %d bytes",
				ErrInvalidName, p.String(), artifacts.MaxDirNameLength)
		}
		key := s.resolver.Key(p)
		if other, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q and %q", ErrArtifactConflict, other.String(), p.String())
		}
		seen[key] = p
	}
	return nil
}

func resolveIn(root *models.Folder, p models.Path) (models.Node, bool) {
	var node models.Node = root
	for _, name := range p {
		folder, ok := node.(*models.Folder)
		if !ok {
			return nil, false
		}
		child, ok := folder.Child(name)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

func folderIn(root *models.Folder, p models.Path) (*models.Folder, error) {
	node, ok := resolveIn(root, p)
	if !ok {
		return nil, ErrInvalidPath
	}
	folder, ok := node.(*models.Folder)
	if !ok {
		return nil, ErrNotFolder
	}
	return folder, nil
}
