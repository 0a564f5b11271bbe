// Package transcribe sends audio files to a speech-to-text service and returns text.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
)

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, file string) (string, error)
}

// ErrNoText indicates the response did not contain a text field at the configured path.
var ErrNoText = errors.New("response has no transcript text")

// APIError is returned when the service answers with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transcription service returned %d: %s", e.StatusCode, e.Body)
}

// Config holds the settings of an OpenAI-compatible transcription endpoint.
type Config struct {
	Endpoint       string
	APIKey         string
	Model          string
	Language       string
	ResponseFormat string
	Prompt         string
	// TextPath is a gjson path selecting the transcript in the response body.
	TextPath       string
	Timeout        time.Duration
	MaxUploadBytes int64
}

// DefaultConfig returns the settings for the OpenAI whisper endpoint without a key.
func DefaultConfig() Config {
	return Config{
		Endpoint:       "https://api.openai.com/v1/audio/transcriptions",
		Model:          "whisper-1",
		Language:       "en",
		ResponseFormat: "verbose_json",
		TextPath:       "text",
		Timeout:        2 * time.Minute,
		MaxUploadBytes: 25 << 20,
	}
}

// Client posts files as multipart forms.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a client for cfg. Empty fields fall back to DefaultConfig.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = def.ResponseFormat
	}
	if cfg.TextPath == "" {
		cfg.TextPath = def.TextPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Config returns the effective settings.
func (c *Client) Config() Config {
	return c.cfg
}

// Transcribe uploads file and extracts the transcript text from the response.
func (c *Client) Transcribe(ctx context.Context, file string) (string, error) {
	body, contentType, err := c.buildForm(file)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send %s: %w", filepath.Base(file), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	return c.extractText(respBody)
}

func (c *Client) buildForm(file string) (io.Reader, string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(file))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}

	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", c.cfg.ResponseFormat},
		{"language", c.cfg.Language},
		{"prompt", c.cfg.Prompt},
	}
	if c.cfg.ResponseFormat == "verbose_json" {
		fields = append(fields, [2]string{"timestamp_granularities[]", "segment"})
	}
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		if err := writer.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func (c *Client) extractText(body []byte) (string, error) {
	if c.cfg.ResponseFormat == "text" {
		return string(bytes.TrimSpace(body)), nil
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("decode response: invalid JSON")
	}
	res := gjson.GetBytes(body, c.cfg.TextPath)
	if !res.Exists() {
		return "", fmt.Errorf("%w at %q", ErrNoText, c.cfg.TextPath)
	}
	return res.String(), nil
}
