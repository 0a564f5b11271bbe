package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattsolo1/grove-convo/pkg/models"
)

const (
	bulkHeader = "### "
	bulkEscape = `\`
	// BulkNew is the header token that starts a segment without an identifier.
	BulkNew = "new"
)

const bulkPreamble = `# Each "### <id>" block below is one segment.
# Delete a block to delete that segment. Start a block with "### new" to add one.
# Lines above the first block are ignored. A leading "\" on a text line is removed;
# it keeps text that looks like a header from starting a block.
`

// FormatBulk renders segments in the bulk edit format.
func FormatBulk(segments []models.Segment) string {
	var b strings.Builder
	b.WriteString(bulkPreamble)
	for _, seg := range segments {
		b.WriteString("\n")
		b.WriteString(bulkHeader + seg.ID + "\n")
		for _, line := range strings.Split(bulkText(seg.Text), "\n") {
			if needsEscape(line) {
				b.WriteString(bulkEscape)
			}
			b.WriteString(line + "\n")
		}
	}
	if len(segments) == 0 {
		b.WriteString("\n" + bulkHeader + BulkNew + "\n")
	}
	return b.String()
}

// ParseBulk reads the bulk edit format. A header line is "### " followed by a segment
// identifier or "new"; any other line belongs to the current block, with one leading
// backslash removed. Blocks keep their order and lose surrounding blank lines. Empty
// "new" blocks are dropped.
func ParseBulk(r io.Reader) ([]models.Segment, error) {
	var (
		segments []models.Segment
		current  *models.Segment
		lines    []string
	)
	finish := func() {
		if current == nil {
			return
		}
		current.Text = strings.Trim(strings.Join(lines, "\n"), "\n")
		if current.ID != "" || strings.TrimSpace(current.Text) != "" {
			segments = append(segments, *current)
		}
		current, lines = nil, nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if token, ok := headerToken(line); ok {
			finish()
			id := token
			if id == BulkNew {
				id = ""
			}
			current = &models.Segment{ID: id}
			if id != "" {
				current.Time, _, _ = models.ParseSegmentID(id)
			}
			continue
		}
		if current != nil {
			lines = append(lines, strings.TrimPrefix(line, bulkEscape))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read bulk edit: %w", err)
	}
	finish()
	return segments, nil
}

func headerToken(line string) (string, bool) {
	if !strings.HasPrefix(line, bulkHeader) {
		return "", false
	}
	token := strings.TrimSpace(line[len(bulkHeader):])
	if token == BulkNew {
		return token, true
	}
	if _, _, ok := models.ParseSegmentID(token); ok {
		return token, true
	}
	return "", false
}

func needsEscape(line string) bool {
	if strings.HasPrefix(line, bulkEscape) {
		return true
	}
	_, ok := headerToken(strings.TrimSuffix(line, "\r"))
	return ok
}

// bulkText is the text of a segment as its block shows it.
func bulkText(text string) string {
	return strings.Trim(text, "\n")
}

// RestoreUnchanged returns edited with the stored text put back for every segment whose
// block came back untouched. The bulk format trims surrounding blank lines and carriage
// returns, and an untouched block must not rewrite the segment.
func RestoreUnchanged(original, edited []models.Segment) []models.Segment {
	stored := make(map[string]string, len(original))
	for _, seg := range original {
		stored[seg.ID] = seg.Text
	}

	out := make([]models.Segment, len(edited))
	for i, seg := range edited {
		if text, ok := stored[seg.ID]; ok && seg.ID != "" && seg.Text == asParsed(text) {
			seg.Text = text
		}
		out[i] = seg
	}
	return out
}

// asParsed is what ParseBulk yields for text written by FormatBulk.
func asParsed(text string) string {
	lines := strings.Split(bulkText(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
