// Package transcript stores a conversation's transcript as one text file per segment.
package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-convo/internal/fsutil"
	"github.com/mattsolo1/grove-convo/pkg/models"
)

// ErrDuplicateSegment indicates two segments in one save share an identifier.
var ErrDuplicateSegment = errors.New("duplicate segment id")

// maxTieBreak bounds the suffixes tried when identifiers collide.
const maxTieBreak = 1000

// Store reads and writes segment files. It treats each directory it is given as opaque.
type Store struct {
	logger logrus.FieldLogger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped files.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for new segment identifiers.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a segment store.
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		s.logger = logger
	}
	return s
}

// List returns the segments in dir in time order. A missing directory yields no
// segments. Files that cannot be read are skipped.
func (s *Store) List(dir string) ([]models.Segment, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Segment{}, nil
	}
	if err != nil {
		s.logger.WithError(err).WithField("dir", dir).Warn("Could not list transcripts")
		return []models.Segment{}, nil
	}

	segments := make([]models.Segment, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := models.SegmentIDFromFile(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			s.logger.WithError(err).WithField("segment", id).Warn("Skipping unreadable segment")
			continue
		}
		t, _, _ := models.ParseSegmentID(id)
		segments = append(segments, models.Segment{ID: id, Time: t, Text: string(data)})
	}
	Sort(segments)
	return segments, nil
}

// Sort orders segments by time, then by tie-break sequence, then by identifier.
func Sort(segments []models.Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		ti, si, _ := models.ParseSegmentID(segments[i].ID)
		tj, sj, _ := models.ParseSegmentID(segments[j].ID)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		if si != sj {
			return si < sj
		}
		return segments[i].ID < segments[j].ID
	})
}

// Append writes text as a new segment without touching existing ones.
func (s *Store) Append(dir, text string) (models.Segment, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.Segment{}, fmt.Errorf("create transcript dir: %w", err)
	}

	now := s.now()
	for seq := 0; seq < maxTieBreak; seq++ {
		id := models.NewSegmentID(now, seq)
		pending, err := fsutil.Stage(segmentFile(dir, id), []byte(text), 0644)
		if err != nil {
			return models.Segment{}, fmt.Errorf("write segment: %w", err)
		}
		err = pending.CommitNew()
		if err == nil {
			t, _, _ := models.ParseSegmentID(id)
			return models.Segment{ID: id, Time: t, Text: text}, nil
		}
		pending.Discard()
		if !errors.Is(err, os.ErrExist) {
			return models.Segment{}, fmt.Errorf("write segment: %w", err)
		}
	}
	return models.Segment{}, fmt.Errorf("write segment: no free identifier at %s", now.Format(models.SegmentIDLayout))
}

// SaveAll makes the segment set in dir exactly segments. Segments without an identifier
// are given a fresh one. Every file is replaced atomically, and stale segment files are
// removed only after all new content is in place. The saved segments are returned.
func (s *Store) SaveAll(dir string, segments []models.Segment) ([]models.Segment, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	saved := make([]models.Segment, len(segments))
	keep := make(map[string]bool, len(segments))
	for i, seg := range segments {
		if seg.ID == "" {
			continue
		}
		if _, _, ok := models.ParseSegmentID(seg.ID); !ok {
			return nil, fmt.Errorf("invalid segment id %q", seg.ID)
		}
		if keep[seg.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSegment, seg.ID)
		}
		keep[seg.ID] = true
		saved[i] = seg
	}

	now := s.now()
	seq := 0
	for i, seg := range segments {
		if seg.ID != "" {
			continue
		}
		id := models.NewSegmentID(now, seq)
		for keep[id] || fsutil.Exists(segmentFile(dir, id)) {
			seq++
			id = models.NewSegmentID(now, seq)
		}
		seq++
		keep[id] = true
		seg.ID = id
		saved[i] = seg
	}

	for i := range saved {
		t, _, _ := models.ParseSegmentID(saved[i].ID)
		saved[i].Time = t
		if err := fsutil.WriteFile(segmentFile(dir, saved[i].ID), []byte(saved[i].Text), 0644); err != nil {
			return nil, fmt.Errorf("write segment %s: %w", saved[i].ID, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list transcript dir: %w", err)
	}
	for _, e := range entries {
		id, ok := models.SegmentIDFromFile(e.Name())
		if !ok || e.IsDir() || keep[id] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return nil, fmt.Errorf("remove segment %s: %w", id, err)
		}
	}

	Sort(saved)
	return saved, nil
}

func segmentFile(dir, id string) string {
	return filepath.Join(dir, id+models.SegmentFileExt)
}
