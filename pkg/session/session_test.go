package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mattsolo1/grove-convo/pkg/models"
)

func TestSelectAndDeselect(t *testing.T) {
	s := New()
	_, ok := s.Current()
	assert.False(t, ok)

	s.Select(models.Path{"Work", "Standup"})
	current, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, models.Path{"Work", "Standup"}, current)
	assert.True(t, s.IsSelected(models.Path{"Work", "Standup"}))

	s.Deselect()
	s.Deselect()
	_, ok = s.Current()
	assert.False(t, ok)
	assert.False(t, s.IsSelected(models.Path{"Work", "Standup"}))
}

func TestSelectionIsCopied(t *testing.T) {
	s := New()
	p := models.Path{"Work", "Standup"}
	s.Select(p)
	p[1] = "Changed"

	current, _ := s.Current()
	assert.Equal(t, "Standup", current.Base())
}

func TestRelocate(t *testing.T) {
	s := New()
	s.Select(models.Path{"Work", "Team", "Standup"})

	s.Relocate(models.Path{"Home"}, models.Path{"Away"})
	current, _ := s.Current()
	assert.Equal(t, models.Path{"Work", "Team", "Standup"}, current)

	s.Relocate(models.Path{"Work"}, models.Path{"Job"})
	current, _ = s.Current()
	assert.Equal(t, models.Path{"Job", "Team", "Standup"}, current)
}
