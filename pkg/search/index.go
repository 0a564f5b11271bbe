package search

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mattsolo1/grove-convo/pkg/models"
)

// Index manages the transcript search index
type Index struct {
	db     *sql.DB
	useFTS bool
}

// Result is a segment matched by a search
type Result struct {
	Conversation models.Path `json:"conversation" yaml:"conversation"`
	SegmentID    string      `json:"segment_id" yaml:"segment_id"`
	Time         time.Time   `json:"time" yaml:"time"`
	Snippet      string      `json:"snippet" yaml:"snippet"`
}

// NewIndex creates a new search index
func NewIndex(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return idx, nil
}

// init creates the database schema
func (idx *Index) init() error {
	idx.useFTS = idx.checkFTS5Support()

	metaSchema := `
	CREATE TABLE IF NOT EXISTS segments_meta (
		conversation TEXT NOT NULL,
		segment_id TEXT NOT NULL,
		recorded_at TIMESTAMP,
		content TEXT,
		PRIMARY KEY (conversation, segment_id)
	);

	CREATE INDEX IF NOT EXISTS idx_segments_meta_conversation ON segments_meta(conversation);
	`

	if _, err := idx.db.Exec(metaSchema); err != nil {
		return err
	}

	if idx.useFTS {
		ftsSchema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS segments_fts USING fts5(
			conversation UNINDEXED,
			segment_id UNINDEXED,
			content,
			tokenize = 'porter unicode61'
		);
		`

		if _, err := idx.db.Exec(ftsSchema); err != nil {
			// If FTS creation fails, disable FTS and continue
			idx.useFTS = false
		}
	}

	return nil
}

// checkFTS5Support checks if FTS5 module is available
func (idx *Index) checkFTS5Support() bool {
	_, err := idx.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS fts5_test USING fts5(content)")
	if err != nil {
		return false
	}

	_, _ = idx.db.Exec("DROP TABLE IF EXISTS fts5_test")
	return true
}

// UsesFTS reports whether the full-text engine is active
func (idx *Index) UsesFTS() bool {
	return idx.useFTS
}

// IndexConversation replaces every indexed segment of a conversation
func (idx *Index) IndexConversation(conversation models.Path, segments []models.Segment) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	key := conversation.String()
	if err := deleteConversation(tx, idx.useFTS, key); err != nil {
		return err
	}

	for _, seg := range segments {
		if err := insertSegment(tx, idx.useFTS, key, seg); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// IndexSegment adds or replaces a single segment
func (idx *Index) IndexSegment(conversation models.Path, seg models.Segment) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	key := conversation.String()
	if idx.useFTS {
		if _, err := tx.Exec("DELETE FROM segments_fts WHERE conversation = ? AND segment_id = ?", key, seg.ID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("DELETE FROM segments_meta WHERE conversation = ? AND segment_id = ?", key, seg.ID); err != nil {
		return err
	}
	if err := insertSegment(tx, idx.useFTS, key, seg); err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveConversations drops the index entries of the conversation at prefix and of
// everything beneath it
func (idx *Index) RemoveConversations(prefix models.Path) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	cond, args := prefixCondition("conversation", prefix.String())
	tables := []string{"segments_meta"}
	if idx.useFTS {
		tables = append(tables, "segments_fts")
	}
	for _, table := range tables {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE "+cond, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RenamePrefix rewrites the conversation keys at or beneath oldPrefix
func (idx *Index) RenamePrefix(oldPrefix, newPrefix models.Path) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	oldKey, newKey := oldPrefix.String(), newPrefix.String()
	cond, condArgs := prefixCondition("conversation", oldKey)
	tables := []string{"segments_meta"}
	if idx.useFTS {
		tables = append(tables, "segments_fts")
	}
	for _, table := range tables {
		query := fmt.Sprintf("UPDATE %s SET conversation = ? || substr(conversation, ?) WHERE %s", table, cond)
		args := append([]any{newKey, utf8.RuneCountInString(oldKey) + 1}, condArgs...)
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Options for searching
type Options struct {
	Conversation models.Path
	Limit        int
}

// Search performs a full-text search
func (idx *Index) Search(query string, opts *Options) ([]*Result, error) {
	if opts == nil {
		opts = &Options{Limit: 50}
	}
	if opts.Limit == 0 {
		opts.Limit = 50
	}

	if idx.useFTS {
		return idx.searchWithFTS(query, opts)
	}
	return idx.searchWithoutFTS(query, opts)
}

// searchWithFTS performs search using FTS5
func (idx *Index) searchWithFTS(query string, opts *Options) ([]*Result, error) {
	var conditions []string
	var args []any

	if !opts.Conversation.IsRoot() {
		cond, condArgs := prefixCondition("segments_fts.conversation", opts.Conversation.String())
		conditions = append(conditions, cond)
		args = append(args, condArgs...)
	}
	conditions = append(conditions, "segments_fts MATCH ?")
	args = append(args, ftsQuery(query))

	searchQuery := fmt.Sprintf(`
		SELECT
			segments_fts.conversation, segments_fts.segment_id, m.recorded_at,
			snippet(segments_fts, 2, '<match>', '</match>', '...', 32) as snippet
		FROM segments_fts
		JOIN segments_meta m ON segments_fts.conversation = m.conversation AND segments_fts.segment_id = m.segment_id
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := idx.db.Query(searchQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}

// searchWithoutFTS performs search using LIKE queries on the metadata table
func (idx *Index) searchWithoutFTS(query string, opts *Options) ([]*Result, error) {
	var conditions []string
	var args []any

	if !opts.Conversation.IsRoot() {
		cond, condArgs := prefixCondition("conversation", opts.Conversation.String())
		conditions = append(conditions, cond)
		args = append(args, condArgs...)
	}

	searchPattern := "%" + strings.ReplaceAll(escapeLike(query), " ", "%") + "%"
	conditions = append(conditions, "content LIKE ? ESCAPE '\\'")
	args = append(args, searchPattern)

	searchQuery := fmt.Sprintf(`
		SELECT conversation, segment_id, recorded_at, substr(content, 1, 120)
		FROM segments_meta
		WHERE %s
		ORDER BY recorded_at DESC
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := idx.db.Query(searchQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}

// Close closes the index
func (idx *Index) Close() error {
	return idx.db.Close()
}

func scanResults(rows *sql.Rows) ([]*Result, error) {
	var results []*Result
	for rows.Next() {
		var conversation string
		r := &Result{}
		if err := rows.Scan(&conversation, &r.SegmentID, &r.Time, &r.Snippet); err != nil {
			return nil, err
		}
		r.Conversation = models.ParsePath(conversation)
		results = append(results, r)
	}
	return results, rows.Err()
}

func deleteConversation(tx *sql.Tx, useFTS bool, key string) error {
	if useFTS {
		if _, err := tx.Exec("DELETE FROM segments_fts WHERE conversation = ?", key); err != nil {
			return err
		}
	}
	_, err := tx.Exec("DELETE FROM segments_meta WHERE conversation = ?", key)
	return err
}

func insertSegment(tx *sql.Tx, useFTS bool, key string, seg models.Segment) error {
	if useFTS {
		_, err := tx.Exec(`
			INSERT INTO segments_fts (conversation, segment_id, content)
			VALUES (?, ?, ?)
		`, key, seg.ID, seg.Text)
		if err != nil {
			return err
		}
	}
	_, err := tx.Exec(`
		INSERT INTO segments_meta (conversation, segment_id, recorded_at, content)
		VALUES (?, ?, ?, ?)
	`, key, seg.ID, seg.Time, seg.Text)
	return err
}

// ftsQuery quotes each term so user input cannot be read as FTS5 syntax
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// prefixCondition matches col against the conversation at key and everything beneath it.
// LIKE folds ASCII case, and sibling names differing only in case are distinct, so the
// prefix is compared exactly with substr.
func prefixCondition(col, key string) (string, []any) {
	prefix := key + "/"
	cond := fmt.Sprintf("(%s = ? OR substr(%s, 1, ?) = ?)", col, col)
	return cond, []any{key, utf8.RuneCountInString(prefix), prefix}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
