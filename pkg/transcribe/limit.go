package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattsolo1/grove-convo/pkg/wavsplit"
)

// maxSplitParts bounds how finely an oversized file is cut.
const maxSplitParts = 64

// sizeLimited cuts files above maxBytes into parts before handing them to next.
type sizeLimited struct {
	next     Transcriber
	maxBytes int64
}

// LimitUploads wraps t so WAV files larger than maxBytes are split into parts that fit
// and transcribed part by part. A maxBytes of zero or less disables the limit.
func LimitUploads(t Transcriber, maxBytes int64) Transcriber {
	if maxBytes <= 0 {
		return t
	}
	return &sizeLimited{next: t, maxBytes: maxBytes}
}

func (s *sizeLimited) Transcribe(ctx context.Context, file string) (string, error) {
	info, err := os.Stat(file)
	if err != nil {
		return "", fmt.Errorf("stat audio: %w", err)
	}
	if info.Size() <= s.maxBytes {
		return s.next.Transcribe(ctx, file)
	}

	// Headers repeat in every part, so ask for one more part than the raw ratio.
	parts := int(info.Size()/s.maxBytes) + 1
	if parts > maxSplitParts {
		return "", fmt.Errorf("%s is %d bytes, too large to split under %d bytes", file, info.Size(), s.maxBytes)
	}

	tmp, err := os.MkdirTemp("", "convo-split-*")
	if err != nil {
		return "", fmt.Errorf("create split dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	files, err := wavsplit.Split(file, tmp, parts)
	if err != nil {
		return "", err
	}
	res, err := Batch(ctx, s.next, files)
	if err != nil {
		return "", err
	}
	return strings.Join(res.Texts, " "), nil
}
