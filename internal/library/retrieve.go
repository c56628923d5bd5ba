// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/bookgen/pkg/types"
)

// BookRecord is one indexed book.
type BookRecord struct {
	ID          string `json:"id" yaml:"id"`
	Dir         string `json:"dir" yaml:"dir"`
	Title       string `json:"title" yaml:"title"`
	Author      string `json:"author" yaml:"author"`
	Topic       string `json:"topic" yaml:"topic"`
	Model       string `json:"model" yaml:"model"`
	Annotation  string `json:"annotation" yaml:"annotation"`
	GeneratedAt string `json:"generated_at" yaml:"generated_at"`

	// Chapters and Sections are filled by List from the sections table.
	Chapters int `json:"chapters" yaml:"chapters"`
	Sections int `json:"sections" yaml:"sections"`
}

// bookMetadata is the metadata.json document written by the file
// writer: the generated metadata plus the run's topic and model.
type bookMetadata struct {
	types.Metadata
	Topic string `json:"topic"`
	Model string `json:"model"`
}

// readMetadata loads a book's metadata.json.
func readMetadata(path string) (*bookMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var meta bookMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &meta, nil
}

// List returns every indexed book, newest first.
func (s *Store) List(ctx context.Context) ([]BookRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.dir, b.title, b.author, b.topic, b.model, b.annotation, b.generated_at,
			(SELECT count(DISTINCT chapter) FROM sections WHERE book_id = b.id),
			(SELECT count(*) FROM sections WHERE book_id = b.id)
		 FROM books b
		 ORDER BY b.generated_at DESC, b.id`)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	var books []BookRecord
	for rows.Next() {
		var b BookRecord
		var dir, title, author, topic, model, annotation, generatedAt sql.NullString
		if err := rows.Scan(&b.ID, &dir, &title, &author, &topic, &model, &annotation, &generatedAt,
			&b.Chapters, &b.Sections); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		b.Dir = dir.String
		b.Title = title.String
		b.Author = author.String
		b.Topic = topic.String
		b.Model = model.String
		b.Annotation = annotation.String
		b.GeneratedAt = generatedAt.String
		books = append(books, b)
	}

	return books, rows.Err()
}

// QueryOptions holds parameters for library searches.
type QueryOptions struct {
	// Query is the FTS5 full-text search string.
	Query string

	// BookID restricts results to one book.
	BookID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.BookID == ""
}

// SearchResult is one matching section with its book context.
type SearchResult struct {
	BookID       string `json:"book_id" yaml:"book_id"`
	BookTitle    string `json:"book_title" yaml:"book_title"`
	Chapter      int    `json:"chapter" yaml:"chapter"`
	ChapterTitle string `json:"chapter_title" yaml:"chapter_title"`
	Section      int    `json:"section" yaml:"section"`
	SectionTitle string `json:"section_title" yaml:"section_title"`
	Content      string `json:"content" yaml:"content"`
}

// Search queries the indexed sections with optional full-text search and
// a book filter. Full-text results are ranked by relevance; filter-only
// results come back in book order.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]SearchResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT sec.book_id, b.title, sec.chapter, sec.chapter_title,
				sec.section, sec.title, sec.content
			FROM sections_fts
			JOIN sections sec ON sec.rowid = sections_fts.rowid
			LEFT JOIN books b ON sec.book_id = b.id
			WHERE sections_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT sec.book_id, b.title, sec.chapter, sec.chapter_title,
				sec.section, sec.title, sec.content
			FROM sections sec
			LEFT JOIN books b ON sec.book_id = b.id
			WHERE 1=1`)
	}

	if opts.BookID != "" {
		qb.WriteString(` AND sec.book_id = ?`)
		args = append(args, opts.BookID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY sections_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY sec.book_id, sec.chapter, sec.section`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying library: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r            SearchResult
			bookTitle    sql.NullString
			chapterTitle sql.NullString
			sectionTitle sql.NullString
		)
		if err := rows.Scan(&r.BookID, &bookTitle, &r.Chapter, &chapterTitle,
			&r.Section, &sectionTitle, &r.Content); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.BookTitle = bookTitle.String
		r.ChapterTitle = chapterTitle.String
		r.SectionTitle = sectionTitle.String
		results = append(results, r)
	}

	return results, rows.Err()
}
