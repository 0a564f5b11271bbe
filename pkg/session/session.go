// Package session tracks which conversation is active in an application session.
package session

import (
	"sync"

	"github.com/mattsolo1/grove-convo/pkg/models"
)

// Session holds the current selection. The zero value is unselected and ready to use.
// It is never persisted.
type Session struct {
	mu       sync.RWMutex
	selected models.Path
	active   bool
}

// New returns an unselected session.
func New() *Session {
	return &Session{}
}

// Select makes p the current conversation. The path is not validated.
func (s *Session) Select(p models.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = p.Clone()
	s.active = true
}

// Deselect clears the selection. Calling it while unselected does nothing.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.active = false
}

// Current returns the selected path and whether there is one.
func (s *Session) Current() (models.Path, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected.Clone(), s.active
}

// IsSelected reports whether p is the current selection.
func (s *Session) IsSelected(p models.Path) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active && s.selected.Equal(p)
}

// Relocate moves the selection when it lies at or below oldPrefix.
func (s *Session) Relocate(oldPrefix, newPrefix models.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active && s.selected.HasPrefix(oldPrefix) {
		s.selected = s.selected.Rebase(oldPrefix, newPrefix)
	}
}
