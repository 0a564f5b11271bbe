package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-convo/pkg/artifacts"
	"github.com/mattsolo1/grove-convo/pkg/hierarchy"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/recorder"
	"github.com/mattsolo1/grove-convo/pkg/search"
	"github.com/mattsolo1/grove-convo/pkg/session"
	"github.com/mattsolo1/grove-convo/pkg/transcribe"
	"github.com/mattsolo1/grove-convo/pkg/transcript"
)

var (
	// ErrNoAudioInput is returned by StartRecording when no audio source is configured.
	ErrNoAudioInput = errors.New("no audio input configured")
	// ErrEmptyQuery is returned by Search for a blank query.
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrNothingPending is returned by TranscribePending when no chunks are waiting.
	ErrNothingPending = errors.New("no recordings waiting for transcription")
)

// Service ties the hierarchy, transcripts, search index and audio pipeline together
type Service struct {
	Store       *hierarchy.Store
	Transcripts *transcript.Store
	Session     *session.Session
	Index       *search.Index
	Config      *Config

	transcriber transcribe.Transcriber
	source      recorder.Source
	recorder    *recorder.Recorder
	notifier    Notifier
	logger      logrus.FieldLogger
}

// Config holds service configuration
type Config struct {
	DataDir       string
	Editor        string
	Notify        bool
	Transcription transcribe.Config
	Recording     recorder.Config
}

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, message string) error
}

type desktopNotifier struct{}

func (desktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger handed to every component.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTranscriber replaces the HTTP transcription client.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(s *Service) {
		s.transcriber = t
	}
}

// WithAudioSource enables recording from src.
func WithAudioSource(src recorder.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithNotifier replaces the desktop notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithSegmentStore replaces the transcript segment store.
func WithSegmentStore(store *transcript.Store) Option {
	return func(s *Service) {
		s.Transcripts = store
	}
}

// New creates the service rooted at config.DataDir
func New(config *Config, opts ...Option) (*Service, error) {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Service{
		Config:   config,
		Session:  session.New(),
		logger:   discard,
		notifier: desktopNotifier{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.Transcripts == nil {
		s.Transcripts = transcript.NewStore(transcript.WithLogger(s.logger))
	}
	if s.source != nil {
		s.recorder = recorder.New(s.source, config.Recording, recorder.WithLogger(s.logger))
	}
	if s.transcriber == nil {
		client := transcribe.NewClient(config.Transcription)
		s.transcriber = transcribe.LimitUploads(client, config.Transcription.MaxUploadBytes)
	}

	resolver := artifacts.NewResolver(config.DataDir)
	s.Store = hierarchy.Open(
		filepath.Join(config.DataDir, hierarchy.DefaultFileName),
		resolver,
		hierarchy.WithSession(s.Session),
		hierarchy.WithLogger(s.logger),
	)

	index, err := search.NewIndex(filepath.Join(config.DataDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	s.Index = index

	return s, nil
}

// Logger returns the service logger.
func (s *Service) Logger() logrus.FieldLogger {
	return s.logger
}

// CreateFolder adds an empty folder under parent.
func (s *Service) CreateFolder(parent models.Path, name string) error {
	return s.Store.CreateFolder(parent, name)
}

// CreateConversation adds a conversation under parent and selects it.
func (s *Service) CreateConversation(parent models.Path, name string) error {
	return s.Store.CreateConversation(parent, name)
}

// Rename renames the node at p and carries its index entries along.
func (s *Service) Rename(p models.Path, newName string) error {
	if err := s.Store.Rename(p, newName); err != nil {
		return err
	}
	next := p.Parent().Join(models.NormalizeName(newName))
	if err := s.Index.RenamePrefix(p, next); err != nil {
		s.logger.WithError(err).WithField("path", p.String()).Warn("Failed to update search index after rename")
	}
	return nil
}

// Delete removes the node at p, its descendants and their artifacts.
func (s *Service) Delete(p models.Path) error {
	if err := s.Store.Delete(p); err != nil {
		return err
	}
	if err := s.Index.RemoveConversations(p); err != nil {
		s.logger.WithError(err).WithField("path", p.String()).Warn("Failed to update search index after delete")
	}
	return nil
}

// Select makes the conversation at p the current one.
func (s *Service) Select(p models.Path) error {
	if err := s.requireConversation("select", p); err != nil {
		return err
	}
	s.Session.Select(p)
	return nil
}

// Deselect clears the current conversation.
func (s *Service) Deselect() {
	s.Session.Deselect()
}

// Current returns the selected conversation.
func (s *Service) Current() (models.Path, bool) {
	return s.Session.Current()
}

// Tree returns the subtree at p.
func (s *Service) Tree(p models.Path, order hierarchy.SortOrder, depth int) (*models.Entry, error) {
	return s.Store.Tree(p, order, depth)
}

// Children lists the direct children of the folder at p.
func (s *Service) Children(p models.Path, order hierarchy.SortOrder) ([]*models.Entry, error) {
	return s.Store.Children(p, order)
}

// Segments returns the transcript of the conversation at p in time order.
func (s *Service) Segments(p models.Path) ([]models.Segment, error) {
	if err := s.requireConversation("list segments", p); err != nil {
		return nil, err
	}
	return s.Transcripts.List(s.Store.TranscriptDir(p))
}

// SaveSegments replaces the transcript of the conversation at p.
func (s *Service) SaveSegments(p models.Path, segments []models.Segment) ([]models.Segment, error) {
	if err := s.requireConversation("save segments", p); err != nil {
		return nil, err
	}
	saved, err := s.Transcripts.SaveAll(s.Store.TranscriptDir(p), segments)
	if err != nil {
		return nil, &hierarchy.OpError{Op: "save segments", Path: p.String(), Err: err}
	}
	if err := s.Index.IndexConversation(p, saved); err != nil {
		s.logger.WithError(err).WithField("path", p.String()).Warn("Failed to index transcript")
	}
	return saved, nil
}

// AppendTranscript adds text as a new segment of the conversation at p.
func (s *Service) AppendTranscript(p models.Path, text string) (models.Segment, error) {
	if err := s.requireConversation("append", p); err != nil {
		return models.Segment{}, err
	}
	seg, err := s.Transcripts.Append(s.Store.TranscriptDir(p), text)
	if err != nil {
		return models.Segment{}, &hierarchy.OpError{Op: "append", Path: p.String(), Err: err}
	}
	if err := s.Index.IndexSegment(p, seg); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"path":    p.String(),
			"segment": seg.ID,
		}).Warn("Failed to index segment")
	}
	return seg, nil
}

// Search finds transcript segments matching query
func (s *Service) Search(query string, options ...SearchOption) ([]*search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	opts := &searchOptions{limit: 50}
	for _, opt := range options {
		opt(opts)
	}

	results, err := s.Index.Search(query, &search.Options{
		Conversation: opts.conversation,
		Limit:        opts.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// PendingChunks lists the recorded chunks of the conversation at p that have not been
// transcribed yet.
func (s *Service) PendingChunks(p models.Path) ([]string, error) {
	if err := s.requireConversation("list recordings", p); err != nil {
		return nil, err
	}
	return artifacts.Chunks(s.Store.RecordingsDir(p))
}

// TranscribeResult reports a transcription run.
type TranscribeResult struct {
	// Segment is the appended segment, nil when nothing was transcribed.
	Segment *models.Segment
	// Transcribed counts the chunks whose text was saved.
	Transcribed int
	// Remaining lists the chunks still waiting, including the one that failed.
	Remaining []string
}

// TranscribePending transcribes the waiting chunks of the conversation at p in order and
// appends their text as one segment. When a chunk fails, the text of the chunks before it
// is still saved and those chunks are removed; the failing chunk and the rest remain.
func (s *Service) TranscribePending(ctx context.Context, p models.Path) (*TranscribeResult, error) {
	chunks, err := s.PendingChunks(p)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &TranscribeResult{}, ErrNothingPending
	}

	logger := s.logger.WithField("path", p.String())
	batch, batchErr := transcribe.Batch(ctx, s.transcriber, chunks)
	result := &TranscribeResult{Remaining: chunks[len(batch.Done):]}

	if len(batch.Done) > 0 {
		if text := batch.Text(); text != "" {
			seg, err := s.AppendTranscript(p, text)
			if err != nil {
				// Chunks stay on disk so the run can be repeated.
				result.Remaining = chunks
				return result, errors.Join(batchErr, err)
			}
			result.Segment = &seg
		}
		result.Transcribed = len(batch.Done)
		for _, chunk := range batch.Done {
			if err := os.Remove(chunk); err != nil {
				logger.WithError(err).WithField("chunk", filepath.Base(chunk)).Warn("Failed to remove transcribed chunk")
			}
		}
	}

	if batchErr != nil {
		return result, batchErr
	}
	s.notify("Transcription finished", fmt.Sprintf("%s: %d chunk(s) transcribed", p.String(), result.Transcribed))
	return result, nil
}

// TranscribeFile transcribes a single audio file into a new segment of the conversation
// at p. The file is left in place.
func (s *Service) TranscribeFile(ctx context.Context, p models.Path, file string) (models.Segment, error) {
	if err := s.requireConversation("transcribe", p); err != nil {
		return models.Segment{}, err
	}
	text, err := s.transcriber.Transcribe(ctx, file)
	if err != nil {
		return models.Segment{}, fmt.Errorf("transcribe %s: %w", filepath.Base(file), err)
	}
	seg, err := s.AppendTranscript(p, strings.TrimSpace(text))
	if err != nil {
		return models.Segment{}, err
	}
	s.notify("Transcription finished", p.String())
	return seg, nil
}

// StartRecording begins capturing audio into the recordings directory of the
// conversation at p.
func (s *Service) StartRecording(ctx context.Context, p models.Path) (*recorder.Recording, error) {
	if s.recorder == nil {
		return nil, ErrNoAudioInput
	}
	if err := s.requireConversation("record", p); err != nil {
		return nil, err
	}
	rec, err := s.recorder.Start(ctx, s.Store.RecordingsDir(p))
	if err != nil {
		return nil, &hierarchy.OpError{Op: "record", Path: p.String(), Err: err}
	}
	s.logger.WithField("path", p.String()).Debug("Recording started")
	return rec, nil
}

// Reindex rebuilds the search index from the transcripts on disk and returns the number
// of segments indexed.
func (s *Service) Reindex() (int, error) {
	total := 0
	for _, p := range s.Store.Conversations() {
		segments, err := s.Transcripts.List(s.Store.TranscriptDir(p))
		if err != nil {
			return total, err
		}
		if err := s.Index.IndexConversation(p, segments); err != nil {
			return total, fmt.Errorf("index %s: %w", p.String(), err)
		}
		total += len(segments)
	}
	return total, nil
}

// Close closes the service
func (s *Service) Close() error {
	if s.Index != nil {
		if err := s.Index.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) requireConversation(op string, p models.Path) error {
	if !s.Store.IsConversation(p) {
		return &hierarchy.OpError{Op: op, Path: p.String(), Err: hierarchy.ErrNotConversation}
	}
	return nil
}

func (s *Service) notify(title, message string) {
	if !s.Config.Notify || s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(title, message); err != nil {
		s.logger.WithError(err).Debug("Desktop notification failed")
	}
}

type searchOptions struct {
	conversation models.Path
	limit        int
}

// SearchOption narrows a search.
type SearchOption func(*searchOptions)

// InConversation limits results to the node at p and its descendants.
func InConversation(p models.Path) SearchOption {
	return func(o *searchOptions) {
		o.conversation = p
	}
}

func WithLimit(limit int) SearchOption {
	return func(o *searchOptions) {
		o.limit = limit
	}
}
