// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library indexes previously generated book directories into a
// SQLite database so they can be listed and searched full-text.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bookgen/pkg/types"
)

const (
	indexDir     = "index"
	dbFile       = "library.db"
	metadataFile = "metadata.json"
	outlineFile  = "outline.txt"
)

var (
	chapterDirPattern  = regexp.MustCompile(`^chapter_(\d{2})$`)
	sectionFilePattern = regexp.MustCompile(`^section_(\d{2})\.md$`)
)

// Store manages the book library SQLite database.
type Store struct {
	db         *sql.DB
	libraryDir string
	maxResults int
}

// NewStore opens or creates the library database at
// libraryDir/index/library.db, creating the schema if needed.
func NewStore(cfg types.LibraryConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.LibraryDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		libraryDir: cfg.LibraryDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			dir TEXT,
			title TEXT,
			author TEXT,
			topic TEXT,
			model TEXT,
			annotation TEXT,
			generated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id TEXT NOT NULL REFERENCES books(id),
			chapter INTEGER NOT NULL,
			chapter_title TEXT,
			section INTEGER NOT NULL,
			title TEXT,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_book_id ON sections(book_id)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			book_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='sections_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE sections_fts USING fts5(content, content=sections, content_rowid=rowid)`,
			`CREATE TRIGGER sections_ai AFTER INSERT ON sections BEGIN
				INSERT INTO sections_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER sections_ad AFTER DELETE ON sections BEGIN
				INSERT INTO sections_fts(sections_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
			`CREATE TRIGGER sections_au AFTER UPDATE ON sections BEGIN
				INSERT INTO sections_fts(sections_fts, rowid, content) VALUES('delete', old.rowid, old.content);
				INSERT INTO sections_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a library indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of book directories processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// HasFailures reports whether any book failed indexing.
func (s IngestSummary) HasFailures() bool {
	return s.Failed > 0
}

// Ingest indexes the given directories. Each argument may be a book
// directory (containing metadata.json) or a parent whose immediate
// children are book directories. New, changed, and unchanged books are
// detected by metadata.json mod time for incremental updates.
func (s *Store) Ingest(ctx context.Context, dirs []string, w io.Writer) (IngestSummary, error) {
	bookDirs, err := expandBookDirs(dirs)
	if err != nil {
		return IngestSummary{}, err
	}

	var summary IngestSummary

	for _, dir := range bookDirs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		bookID := filepath.Base(dir)

		info, err := os.Stat(filepath.Join(dir, metadataFile))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", bookID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE book_id = ?`, bookID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", bookID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		book, sections, err := loadBook(dir, bookID)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", bookID, err)
			summary.Failed++
			continue
		}

		if err := s.ingestBook(ctx, book, sections, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", bookID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d sections)\n", bookID, len(sections))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s (%d sections)\n", bookID, len(sections))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

// expandBookDirs resolves the argument directories to book directories.
func expandBookDirs(dirs []string) ([]string, error) {
	var books []string
	for _, dir := range dirs {
		if isBookDir(dir) {
			books = append(books, dir)
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", dir, err)
		}
		for _, e := range entries {
			child := filepath.Join(dir, e.Name())
			if e.IsDir() && isBookDir(child) {
				books = append(books, child)
			}
		}
	}
	sort.Strings(books)
	return books, nil
}

func isBookDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, metadataFile))
	return err == nil
}

func (s *Store) ingestBook(ctx context.Context, book *BookRecord, sections []sectionRecord, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE book_id = ?`, book.ID); err != nil {
			return fmt.Errorf("deleting old sections: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO books (id, dir, title, author, topic, model, annotation, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			dir=excluded.dir, title=excluded.title, author=excluded.author,
			topic=excluded.topic, model=excluded.model,
			annotation=excluded.annotation, generated_at=excluded.generated_at`,
		book.ID, book.Dir, book.Title, book.Author, book.Topic, book.Model,
		book.Annotation, book.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting book: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sections (book_id, chapter, chapter_title, section, title, content)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, sec := range sections {
		_, err := stmt.ExecContext(ctx,
			book.ID, sec.chapter, sec.chapterTitle, sec.number, sec.title, sec.content,
		)
		if err != nil {
			return fmt.Errorf("inserting section %d.%d: %w", sec.chapter, sec.number, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (book_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(book_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		book.ID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// sectionRecord is one section file read from a book directory.
type sectionRecord struct {
	chapter      int
	chapterTitle string
	number       int
	title        string
	content      string
}

// loadBook reads metadata.json, outline.txt, and every
// chapter_NN/section_NN.md under dir.
func loadBook(dir, bookID string) (*BookRecord, []sectionRecord, error) {
	meta, err := readMetadata(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, nil, err
	}

	book := &BookRecord{
		ID:          bookID,
		Dir:         dir,
		Title:       meta.Title,
		Author:      meta.Author,
		Topic:       meta.Topic,
		Model:       meta.Model,
		Annotation:  meta.Annotation,
		GeneratedAt: meta.GeneratedAt,
	}

	chapterTitles := readOutlineTitles(filepath.Join(dir, outlineFile))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading book directory: %w", err)
	}

	var sections []sectionRecord
	for _, e := range entries {
		m := chapterDirPattern.FindStringSubmatch(e.Name())
		if !e.IsDir() || m == nil {
			continue
		}
		chapter, _ := strconv.Atoi(m[1])

		chapterTitle := ""
		if chapter >= 1 && chapter <= len(chapterTitles) {
			chapterTitle = chapterTitles[chapter-1]
		}

		chSections, err := loadChapterSections(filepath.Join(dir, e.Name()), chapter, chapterTitle)
		if err != nil {
			return nil, nil, err
		}
		sections = append(sections, chSections...)
	}

	sort.Slice(sections, func(i, j int) bool {
		if sections[i].chapter != sections[j].chapter {
			return sections[i].chapter < sections[j].chapter
		}
		return sections[i].number < sections[j].number
	})

	return book, sections, nil
}

func loadChapterSections(chDir string, chapter int, chapterTitle string) ([]sectionRecord, error) {
	entries, err := os.ReadDir(chDir)
	if err != nil {
		return nil, fmt.Errorf("reading chapter directory %s: %w", chDir, err)
	}

	var sections []sectionRecord
	for _, e := range entries {
		m := sectionFilePattern.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		number, _ := strconv.Atoi(m[1])

		data, err := os.ReadFile(filepath.Join(chDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		title, content := splitSectionFile(string(data))
		sections = append(sections, sectionRecord{
			chapter:      chapter,
			chapterTitle: chapterTitle,
			number:       number,
			title:        title,
			content:      content,
		})
	}
	return sections, nil
}

// splitSectionFile separates the leading "## Title" heading from the
// section body.
func splitSectionFile(data string) (title, content string) {
	content = strings.TrimSpace(data)
	if !strings.HasPrefix(content, "## ") {
		return "", content
	}
	line, rest, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "## ")), strings.TrimSpace(rest)
}

func readOutlineTitles(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var titles []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			titles = append(titles, line)
		}
	}
	return titles
}
