package library

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/bookgen/internal/bookfs"
	"github.com/pdiddy/bookgen/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := types.LibraryConfig{
		LibraryDir: filepath.Join(tmpDir, "library"),
		MaxResults: 20,
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, tmpDir
}

// writeBook generates a real book directory via the file writer.
func writeBook(t *testing.T, tmpDir, name, title string, chapters, sections int) string {
	t.Helper()

	artifact := &types.BookArtifact{
		Spec: types.BookSpec{
			Topic: "Topic of " + title,
			Model: "test-model",
		},
		Metadata: types.Metadata{
			Title:       title,
			Author:      "Test Author",
			Annotation:  "Annotation for " + title,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
		Introduction: "intro",
		Conclusion:   "conclusion",
		Bibliography: []string{"Ref (2026)"},
	}
	for i := 1; i <= chapters; i++ {
		chTitle := fmt.Sprintf("%s Chapter %d", title, i)
		artifact.Outline.ChapterTitles = append(artifact.Outline.ChapterTitles, chTitle)
		ch := types.Chapter{Number: i, Title: chTitle}
		for j := 1; j <= sections; j++ {
			ch.Sections = append(ch.Sections, types.Section{
				Chapter: i,
				Number:  j,
				Title:   fmt.Sprintf("Section %d", j),
				Body:    fmt.Sprintf("prose about %s chapter %d section %d", title, i, j),
			})
		}
		artifact.Chapters = append(artifact.Chapters, ch)
	}

	dir := filepath.Join(tmpDir, "books", name)
	if err := bookfs.WriteBook(artifact, dir); err != nil {
		t.Fatal(err)
	}
	return dir
}

// --- ingest ---

func TestIngest_IndexesNewBook(t *testing.T) {
	store, tmpDir := testSetup(t)
	dir := writeBook(t, tmpDir, "book_one", "Quantum Basics", 2, 6)

	summary, err := store.Ingest(context.Background(), []string{dir}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Indexed != 1 || summary.HasFailures() {
		t.Fatalf("summary: %+v", summary)
	}

	books, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 1 {
		t.Fatalf("got %d books", len(books))
	}
	b := books[0]
	if b.Title != "Quantum Basics" || b.Chapters != 2 || b.Sections != 12 {
		t.Errorf("book record: %+v", b)
	}
	if b.Topic != "Topic of Quantum Basics" || b.Model != "test-model" {
		t.Errorf("topic/model not persisted: %+v", b)
	}
}

func TestIngest_ExpandsParentDirectory(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeBook(t, tmpDir, "book_one", "First", 1, 6)
	writeBook(t, tmpDir, "book_two", "Second", 1, 6)

	summary, err := store.Ingest(context.Background(),
		[]string{filepath.Join(tmpDir, "books")}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Indexed != 2 {
		t.Fatalf("summary: %+v", summary)
	}
}

func TestIngest_SkipsUnchangedBook(t *testing.T) {
	store, tmpDir := testSetup(t)
	dir := writeBook(t, tmpDir, "book_one", "Stable", 1, 6)

	if _, err := store.Ingest(context.Background(), []string{dir}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	summary, err := store.Ingest(context.Background(), []string{dir}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Indexed != 0 {
		t.Fatalf("summary: %+v", summary)
	}
}

func TestIngest_ReindexesChangedBook(t *testing.T) {
	store, tmpDir := testSetup(t)
	dir := writeBook(t, tmpDir, "book_one", "Changing", 1, 6)

	if _, err := store.Ingest(context.Background(), []string{dir}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(dir, "metadata.json"), future, future); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Ingest(context.Background(), []string{dir}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	// Section count must not double after the re-ingest.
	books, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if books[0].Sections != 6 {
		t.Errorf("got %d sections after re-ingest, want 6", books[0].Sections)
	}
}

func TestIngest_MissingMetadataFails(t *testing.T) {
	store, tmpDir := testSetup(t)
	dir := writeBook(t, tmpDir, "book_one", "Broken", 1, 6)
	if err := os.Remove(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatal(err)
	}

	// A directory without metadata.json is not a book directory, so the
	// parent expansion finds nothing at all.
	summary, err := store.Ingest(context.Background(),
		[]string{filepath.Join(tmpDir, "books")}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total() != 0 {
		t.Fatalf("summary: %+v", summary)
	}
}

// --- search ---

func TestSearch_FullText(t *testing.T) {
	store, tmpDir := testSetup(t)
	dir := writeBook(t, tmpDir, "book_one", "Searchable", 2, 6)
	if _, err := store.Ingest(context.Background(), []string{dir}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(context.Background(), QueryOptions{Query: "Searchable"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no full-text matches")
	}
	if results[0].BookTitle != "Searchable" {
		t.Errorf("result missing book title: %+v", results[0])
	}
}

func TestSearch_BookFilter(t *testing.T) {
	store, tmpDir := testSetup(t)
	d1 := writeBook(t, tmpDir, "book_one", "First", 1, 6)
	d2 := writeBook(t, tmpDir, "book_two", "Second", 1, 6)
	if _, err := store.Ingest(context.Background(), []string{d1, d2}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(context.Background(), QueryOptions{BookID: "book_two"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 6 {
		t.Fatalf("got %d results, want 6", len(results))
	}
	for _, r := range results {
		if r.BookID != "book_two" {
			t.Errorf("filter leaked: %+v", r)
		}
	}
}

func TestSearch_MaxResults(t *testing.T) {
	store, tmpDir := testSetup(t)
	dir := writeBook(t, tmpDir, "book_one", "Limited", 2, 6)
	if _, err := store.Ingest(context.Background(), []string{dir}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(context.Background(), QueryOptions{BookID: "book_one", MaxResults: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
}

func TestQueryOptions_IsEmpty(t *testing.T) {
	if !(QueryOptions{}).IsEmpty() {
		t.Error("zero options should be empty")
	}
	if (QueryOptions{Query: "q"}).IsEmpty() {
		t.Error("query options should not be empty")
	}
	if (QueryOptions{BookID: "b"}).IsEmpty() {
		t.Error("book filter should not be empty")
	}
}

// --- export ---

func TestExport_WritesYAMLAndJSON(t *testing.T) {
	store, tmpDir := testSetup(t)
	dir := writeBook(t, tmpDir, "book_one", "Exported", 1, 6)
	if _, err := store.Ingest(context.Background(), []string{dir}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	// Ingest already wrote export.yaml; write JSON explicitly.
	if err := store.ExportJSON(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, f := range []string{"export.yaml", "export.json"} {
		path := filepath.Join(tmpDir, "library", "index", f)
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("missing %s: %v", f, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", f)
		}
	}
}
