// Package recorder captures audio from an input source into fixed-duration WAV chunks.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-convo/pkg/artifacts"
	"github.com/mattsolo1/grove-convo/pkg/wavsplit"
)

// ErrRecording is returned when a recording is started while another is in flight.
var ErrRecording = errors.New("recording already in progress")

// Source opens audio input streams.
type Source interface {
	Open(sampleRate, channels, framesPerBuffer int) (Stream, error)
}

// Stream delivers interleaved 16-bit samples. Read blocks until buf is full.
type Stream interface {
	Read(buf []int16) error
	Close() error
}

// Config sets the capture format and chunking.
type Config struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	ChunkDuration   time.Duration
}

// DefaultConfig returns mono 44.1kHz capture in one-minute chunks.
func DefaultConfig() Config {
	return Config{
		SampleRate:      44100,
		Channels:        1,
		FramesPerBuffer: 1024,
		ChunkDuration:   60 * time.Second,
	}
}

// Recorder starts recordings from a Source. At most one recording runs at a time.
type Recorder struct {
	cfg    Config
	source Source
	logger logrus.FieldLogger

	mu     sync.Mutex
	active *Recording
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// New creates a recorder reading from source. Zero fields in cfg take their defaults.
func New(source Source, cfg Config, opts ...Option) *Recorder {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = def.FramesPerBuffer
	}
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = def.ChunkDuration
	}

	r := &Recorder{cfg: cfg, source: source}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		r.logger = logger
	}
	return r
}

// Config returns the effective settings.
func (r *Recorder) Config() Config {
	return r.cfg
}

// Start opens the source and records into dir on a worker goroutine until ctx is done or
// Stop is called. Chunk numbering continues after the highest chunk already in dir.
func (r *Recorder) Start(ctx context.Context, dir string) (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		select {
		case <-r.active.done:
		default:
			return nil, ErrRecording
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	next, err := artifacts.NextChunk(dir)
	if err != nil {
		return nil, err
	}

	stream, err := r.source.Open(r.cfg.SampleRate, r.cfg.Channels, r.cfg.FramesPerBuffer)
	if err != nil {
		return nil, fmt.Errorf("open audio input: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	rec := &Recording{
		dir:    dir,
		next:   next,
		cfg:    r.cfg,
		stream: stream,
		logger: r.logger.WithField("dir", dir),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.active = rec
	go rec.run(ctx)
	return rec, nil
}

// Recording is one in-flight capture.
type Recording struct {
	dir    string
	next   int
	cfg    Config
	stream Stream
	logger logrus.FieldLogger

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	chunks []string
	err    error
}

// Dir returns the directory chunks are written to.
func (rec *Recording) Dir() string {
	return rec.dir
}

// Done is closed once the worker has flushed its last chunk and released the stream.
func (rec *Recording) Done() <-chan struct{} {
	return rec.done
}

// Chunks returns the chunk files written so far.
func (rec *Recording) Chunks() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.chunks...)
}

// Stop asks the worker to finish and blocks until it has. The final partial chunk is
// written before Stop returns.
func (rec *Recording) Stop() error {
	rec.cancel()
	return rec.Wait()
}

// Wait blocks until the recording ends and returns its error, if any.
func (rec *Recording) Wait() error {
	<-rec.done
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.err
}

func (rec *Recording) run(ctx context.Context) {
	defer close(rec.done)

	buf := make([]int16, rec.cfg.FramesPerBuffer*rec.cfg.Channels)
	chunkSamples := int(int64(rec.cfg.ChunkDuration)*int64(rec.cfg.SampleRate)/int64(time.Second)) * rec.cfg.Channels
	if chunkSamples < len(buf) {
		chunkSamples = len(buf)
	}
	pending := make([]int, 0, chunkSamples)

	var runErr error
	for ctx.Err() == nil {
		if err := rec.stream.Read(buf); err != nil {
			runErr = fmt.Errorf("read audio input: %w", err)
			break
		}
		for _, s := range buf {
			pending = append(pending, int(s))
		}
		if len(pending) >= chunkSamples {
			if err := rec.flush(pending[:chunkSamples]); err != nil {
				runErr = err
				break
			}
			pending = append(pending[:0], pending[chunkSamples:]...)
		}
	}

	if err := rec.stream.Close(); err != nil {
		rec.logger.WithError(err).Warn("Could not close audio input")
	}
	if len(pending) > 0 {
		if err := rec.flush(pending); err != nil && runErr == nil {
			runErr = err
		}
	}

	rec.mu.Lock()
	rec.err = runErr
	rec.mu.Unlock()
	rec.logger.WithField("chunks", len(rec.Chunks())).Debug("Recording finished")
}

// flush writes samples as the next chunk. The chunk appears under its final name only
// once it is complete.
func (rec *Recording) flush(samples []int) error {
	name := artifacts.ChunkName(rec.next)
	tmp := filepath.Join(rec.dir, "."+name+".tmp")
	final := filepath.Join(rec.dir, name)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: rec.cfg.Channels,
			SampleRate:  rec.cfg.SampleRate,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := wavsplit.Write(tmp, buf); err != nil {
		return fmt.Errorf("write chunk %s: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write chunk %s: %w", name, err)
	}

	rec.mu.Lock()
	rec.chunks = append(rec.chunks, final)
	rec.mu.Unlock()
	rec.next++
	rec.logger.WithField("chunk", name).Debug("Wrote chunk")
	return nil
}
