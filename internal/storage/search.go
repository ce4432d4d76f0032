package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// scanHits reads FTSHit rows produced by the search queries below.
func scanHits(rows *sql.Rows, withSnippet bool) ([]FTSHit, error) {
	defer func() { _ = rows.Close() }()

	hits := make([]FTSHit, 0)
	for rows.Next() {
		var hit FTSHit
		var content, candidateName sql.NullString
		var err error
		if withSnippet {
			var snippet sql.NullString
			err = rows.Scan(&hit.Filename, &candidateName, &content, &snippet)
			hit.Snippet = snippet.String
		} else {
			err = rows.Scan(&hit.Filename, &candidateName, &content)
		}
		if err != nil {
			return nil, err
		}
		hit.CandidateName = candidateName.String
		hit.Content = content.String
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// SearchPhrase runs an exact quoted-phrase query against the full-text index.
// Results come back in FTS5's native BM25 rank order, which is authoritative
// within a single phrase query.
func (s *SQLiteStore) SearchPhrase(ctx context.Context, phrase string, limit int) ([]FTSHit, error) {
	// Double any embedded quotes so the phrase stays a single FTS5 string token
	quoted := `"` + strings.ReplaceAll(phrase, `"`, `""`) + `"`

	query := `
		SELECT filename, candidate_name, content,
		       snippet(documents_fts, 1, '<b>', '</b>', '…', 12) AS snip
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, quoted, limit)
	if err != nil {
		return nil, fmt.Errorf("phrase query failed: %w", err)
	}
	return scanHits(rows, true)
}

// SearchAnyWord runs a disjunctive keyword query against the full-text index.
func (s *SQLiteStore) SearchAnyWord(ctx context.Context, words []string, limit int) ([]FTSHit, error) {
	if len(words) == 0 {
		return []FTSHit{}, nil
	}

	// Words arrive pre-tokenized; quote each one so FTS5 treats them as
	// plain terms rather than query syntax
	quoted := make([]string, len(words))
	for i, word := range words {
		quoted[i] = `"` + strings.ReplaceAll(word, `"`, `""`) + `"`
	}
	match := strings.Join(quoted, " OR ")

	query := `
		SELECT filename, candidate_name, content
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, match, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword query failed: %w", err)
	}
	return scanHits(rows, false)
}

// SearchSubstring scans the plain documents table for content containing the
// word. This bypasses the tokenizer entirely and backs the last-resort search
// tier when no phrases could be extracted from a query.
func (s *SQLiteStore) SearchSubstring(ctx context.Context, word string, limit int) ([]FTSHit, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(word)

	query := `
		SELECT filename, candidate_name, content
		FROM documents
		WHERE content LIKE ? ESCAPE '\'
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, "%"+escaped+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("substring query failed: %w", err)
	}
	return scanHits(rows, false)
}
