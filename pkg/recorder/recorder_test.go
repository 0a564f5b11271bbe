package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream serves budget buffers, then blocks one more read until release is closed.
// With failAfter set it returns an error instead of blocking.
type fakeStream struct {
	budget    int
	failAfter bool
	exhausted chan struct{}
	release   chan struct{}

	mu     sync.Mutex
	reads  int
	next   int16
	closed bool
}

func newFakeStream(budget int) *fakeStream {
	return &fakeStream{
		budget:    budget,
		exhausted: make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (s *fakeStream) Read(buf []int16) error {
	s.mu.Lock()
	s.reads++
	n := s.reads
	s.mu.Unlock()

	if n == s.budget+1 {
		if s.failAfter {
			close(s.exhausted)
			return errors.New("device unplugged")
		}
		close(s.exhausted)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range buf {
		buf[i] = s.next
		s.next++
	}
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeSource struct {
	stream *fakeStream
	err    error
	opened []int
}

func (f *fakeSource) Open(rate, channels, frames int) (Stream, error) {
	f.opened = []int{rate, channels, frames}
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func testConfig() Config {
	return Config{SampleRate: 1000, Channels: 1, FramesPerBuffer: 10, ChunkDuration: 50 * time.Millisecond}
}

func frameCount(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return len(buf.Data)
}

func TestRecordingWritesChunksAndFlushesTail(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recording_chunk_4.wav"), nil, 0644))

	stream := newFakeStream(12)
	src := &fakeSource{stream: stream}
	rec := New(src, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recording, err := rec.Start(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 1, 10}, src.opened)

	<-stream.exhausted
	cancel()
	close(stream.release)
	require.NoError(t, recording.Wait())

	chunks := recording.Chunks()
	require.Equal(t, []string{
		filepath.Join(dir, "recording_chunk_5.wav"),
		filepath.Join(dir, "recording_chunk_6.wav"),
		filepath.Join(dir, "recording_chunk_7.wav"),
	}, chunks)
	assert.Equal(t, 50, frameCount(t, chunks[0]))
	assert.Equal(t, 50, frameCount(t, chunks[1]))
	assert.Equal(t, 30, frameCount(t, chunks[2]), "the partial chunk is written on stop")
	assert.True(t, stream.closed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "no temp files remain")
}

func TestStopBlocksUntilFlushed(t *testing.T) {
	dir := t.TempDir()
	stream := newFakeStream(3)
	recording, err := New(&fakeSource{stream: stream}, testConfig()).Start(context.Background(), dir)
	require.NoError(t, err)

	<-stream.exhausted
	done := make(chan error, 1)
	go func() { done <- recording.Stop() }()
	close(stream.release)

	require.NoError(t, <-done)
	select {
	case <-recording.Done():
	default:
		t.Fatal("Done must be closed once Stop returns")
	}
	assert.True(t, stream.closed)

	chunks := recording.Chunks()
	require.NotEmpty(t, chunks)
	total := 0
	for _, c := range chunks {
		n := frameCount(t, c)
		assert.LessOrEqual(t, n, 50)
		total += n
	}
	assert.GreaterOrEqual(t, total, 40, "everything read before Stop is on disk")
}

func TestReadErrorEndsRecording(t *testing.T) {
	dir := t.TempDir()
	stream := newFakeStream(2)
	stream.failAfter = true

	recording, err := New(&fakeSource{stream: stream}, testConfig()).Start(context.Background(), dir)
	require.NoError(t, err)

	err = recording.Wait()
	assert.ErrorContains(t, err, "device unplugged")
	require.Len(t, recording.Chunks(), 1, "samples read before the failure are kept")
	assert.Equal(t, 20, frameCount(t, recording.Chunks()[0]))
}

func TestStartErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := New(&fakeSource{err: errors.New("no device")}, testConfig()).Start(context.Background(), dir)
	assert.ErrorContains(t, err, "no device")

	stream := newFakeStream(1)
	rec := New(&fakeSource{stream: stream}, testConfig())
	first, err := rec.Start(context.Background(), dir)
	require.NoError(t, err)

	_, err = rec.Start(context.Background(), dir)
	assert.ErrorIs(t, err, ErrRecording)

	<-stream.exhausted
	go close(stream.release)
	require.NoError(t, first.Stop())
}

func TestDefaults(t *testing.T) {
	rec := New(&fakeSource{}, Config{})
	assert.Equal(t, DefaultConfig(), rec.Config())
}
