package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// BatchResult holds what a batch run managed to transcribe.
type BatchResult struct {
	// Texts has one entry per transcribed file, in input order.
	Texts []string
	// Done lists the files whose text is in Texts.
	Done []string
}

// Text joins the non-empty transcribed texts, one per line.
func (r BatchResult) Text() string {
	parts := make([]string, 0, len(r.Texts))
	for _, t := range r.Texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Batch transcribes files in order and stops at the first failure. The result always
// carries the files that succeeded before the error.
func Batch(ctx context.Context, t Transcriber, files []string) (BatchResult, error) {
	var res BatchResult
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		text, err := t.Transcribe(ctx, file)
		if err != nil {
			return res, fmt.Errorf("transcribe %s: %w", filepath.Base(file), err)
		}
		res.Texts = append(res.Texts, text)
		res.Done = append(res.Done, file)
	}
	return res, nil
}
