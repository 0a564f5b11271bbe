package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	v := viper.New()
	SetDefaults(v)

	cfg := ServiceConfig(v)
	assert.True(t, strings.HasSuffix(cfg.DataDir, filepath.Join(".local", "share", "convo")))
	assert.True(t, cfg.Notify)
	assert.Equal(t, "sk-from-env", cfg.Transcription.APIKey)
	assert.Equal(t, "whisper-1", cfg.Transcription.Model)
	assert.Equal(t, "text", cfg.Transcription.TextPath)
	assert.Equal(t, 2*time.Minute, cfg.Transcription.Timeout)
	assert.Equal(t, int64(25<<20), cfg.Transcription.MaxUploadBytes)
	assert.Equal(t, 44100, cfg.Recording.SampleRate)
	assert.Equal(t, 1, cfg.Recording.Channels)
	assert.Equal(t, 60*time.Second, cfg.Recording.ChunkDuration)
}

func TestServiceConfigFromFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
data_dir: /tmp/convo-test
notify: false
transcription:
  api_key: sk-from-file
  endpoint: http://localhost:9000/v1/audio/transcriptions
  text_path: result.text
  timeout: 30s
recording:
  sample_rate: 16000
  chunk_duration: 5m
`), 0644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())

	cfg := ServiceConfig(v)
	assert.Equal(t, "/tmp/convo-test", cfg.DataDir)
	assert.False(t, cfg.Notify)
	assert.Equal(t, "sk-from-file", cfg.Transcription.APIKey, "the config key wins over OPENAI_API_KEY")
	assert.Equal(t, "http://localhost:9000/v1/audio/transcriptions", cfg.Transcription.Endpoint)
	assert.Equal(t, "result.text", cfg.Transcription.TextPath)
	assert.Equal(t, 30*time.Second, cfg.Transcription.Timeout)
	assert.Equal(t, 16000, cfg.Recording.SampleRate)
	assert.Equal(t, 1024, cfg.Recording.FramesPerBuffer)
	assert.Equal(t, 5*time.Minute, cfg.Recording.ChunkDuration)
}

func TestDataDirExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	v := viper.New()
	SetDefaults(v)
	v.Set("data_dir", "~/conversations")
	assert.Equal(t, filepath.Join(home, "conversations"), ServiceConfig(v).DataDir)

	v.Set("data_dir", "/srv/convo")
	assert.Equal(t, "/srv/convo", ServiceConfig(v).DataDir)
}

func TestEnvFiles(t *testing.T) {
	dataDir := t.TempDir()
	assert.NotContains(t, envFiles(dataDir), filepath.Join(dataDir, ".env"))

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, ".env"), []byte("OPENAI_API_KEY=sk-dotenv\n"), 0600))
	assert.Contains(t, envFiles(dataDir), filepath.Join(dataDir, ".env"))
}
