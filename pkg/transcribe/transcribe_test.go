package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-convo/pkg/wavsplit"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestClientSendsForm(t *testing.T) {
	var gotFields map[string]string
	var gotFile, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotFile = hdr.Filename + ":" + string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text": "hello there", "segments": [{"id": 0}]}`)
	}))
	defer srv.Close()

	file := writeFile(t, t.TempDir(), "clip.wav", "RIFF")
	client := NewClient(Config{Endpoint: srv.URL, APIKey: "sk-test", Language: "en"})

	text, err := client.Transcribe(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "clip.wav:RIFF", gotFile)
	assert.Equal(t, map[string]string{
		"model":                     "whisper-1",
		"response_format":           "verbose_json",
		"language":                  "en",
		"timestamp_granularities[]": "segment",
	}, gotFields)
}

func TestClientTextPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"result": {"transcript": "nested"}}`)
	}))
	defer srv.Close()
	file := writeFile(t, t.TempDir(), "a.wav", "x")

	text, err := NewClient(Config{Endpoint: srv.URL, TextPath: "result.transcript"}).Transcribe(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "nested", text)

	_, err = NewClient(Config{Endpoint: srv.URL}).Transcribe(context.Background(), file)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	file := writeFile(t, t.TempDir(), "a.wav", "x")

	_, err := NewClient(Config{Endpoint: srv.URL}).Transcribe(context.Background(), file)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad key")
}

func TestClientMissingFile(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "http://127.0.0.1:0"}).Transcribe(context.Background(), "/no/such/file.wav")
	assert.Error(t, err)
}

// fakeTranscriber returns the file base name, failing for names in fail.
type fakeTranscriber struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, file string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(file)
	f.calls = append(f.calls, name)
	if f.fail[name] {
		return "", errors.New("upstream unavailable")
	}
	return "text of " + strings.TrimSuffix(name, ".wav"), nil
}

func TestBatchStopsAtFailureAndKeepsEarlierText(t *testing.T) {
	fake := &fakeTranscriber{fail: map[string]bool{"c2.wav": true}}
	res, err := Batch(context.Background(), fake, []string{"/r/c1.wav", "/r/c2.wav", "/r/c3.wav"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "c2.wav")
	assert.Equal(t, []string{"/r/c1.wav"}, res.Done)
	assert.Equal(t, "text of c1", res.Text())
	assert.Equal(t, []string{"c1.wav", "c2.wav"}, fake.calls, "later files are not attempted")
}

func TestBatchJoinsText(t *testing.T) {
	res, err := Batch(context.Background(), &fakeTranscriber{}, []string{"a.wav", "b.wav"})
	require.NoError(t, err)
	assert.Equal(t, "text of a\ntext of b", res.Text())
}

func TestBatchHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Batch(ctx, &fakeTranscriber{}, []string{"a.wav"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Done)
}

func TestLimitUploadsSplitsLargeFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "long.wav")
	samples := make([]int, 8000)
	require.NoError(t, wavsplit.Write(file, &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	info, err := os.Stat(file)
	require.NoError(t, err)

	fake := &fakeTranscriber{}
	text, err := LimitUploads(fake, info.Size()/2).Transcribe(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, []string{"long_part1.wav", "long_part2.wav", "long_part3.wav"}, fake.calls)
	assert.Equal(t, "text of long_part1 text of long_part2 text of long_part3", text)

	fake = &fakeTranscriber{}
	_, err = LimitUploads(fake, info.Size()).Transcribe(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, []string{"long.wav"}, fake.calls, "files within the limit go through unchanged")
}
