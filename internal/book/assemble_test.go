package book

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/bookgen/internal/bookfs"
	"github.com/pdiddy/bookgen/pkg/types"
)

func TestMain(m *testing.M) {
	nowFunc = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }
	m.Run()
}

// scriptedBackend answers prompts by recognizing which pipeline stage
// produced them, and records every prompt for later inspection.
type scriptedBackend struct {
	prompts  []string
	chapters int
	fail     string // stage marker whose prompt should error
}

func (s *scriptedBackend) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.fail != "" && strings.Contains(prompt, s.fail) {
		return "", fmt.Errorf("scripted failure")
	}

	switch {
	case strings.Contains(prompt, "Create a detailed outline"):
		var titles []string
		for i := 1; i <= s.chapters; i++ {
			titles = append(titles, fmt.Sprintf("Chapter Title %d", i))
		}
		return strings.Join(titles, "\n"), nil
	case strings.Contains(prompt, "Create metadata"):
		return "Title: Scripted Book\nAuthor: Test Author\nAnnotation: Scripted annotation.", nil
	case strings.Contains(prompt, "introduction to the book"):
		return "book introduction text", nil
	case strings.Contains(prompt, "Create a detailed structure"):
		return "Introduction\nFirst Topic\nSecond Topic\nThird Topic\nFourth Topic\nConclusion", nil
	case strings.Contains(prompt, "Write the section"):
		title := promptField(prompt, `Write the section "`)
		chapter := promptField(prompt, `for the book chapter "`)
		return fmt.Sprintf("[%s/%s body] ", chapter, title), nil
	case strings.Contains(prompt, "Create a summary"):
		return fmt.Sprintf("summary after %d prompts", len(s.prompts)), nil
	case strings.Contains(prompt, "conclusion to the book"):
		return "book conclusion text", nil
	case strings.Contains(prompt, "bibliographic sources"):
		return "Ref One (2024)\nRef Two (2025)\nRef Three (2026)", nil
	}
	return "", fmt.Errorf("unrecognized prompt: %q", prompt)
}

// promptField extracts the quoted value following marker in a prompt.
func promptField(prompt, marker string) string {
	_, rest, ok := strings.Cut(prompt, marker)
	if !ok {
		return ""
	}
	value, _, _ := strings.Cut(rest, `"`)
	return value
}

func testSpec(chapters int) types.BookSpec {
	return types.BookSpec{
		Topic:    "Quantum Computing",
		Chapters: chapters,
		Model:    "test-model",
		APIURL:   "http://localhost:11434",
	}
}

func TestGenerate_FullPipeline(t *testing.T) {
	backend := &scriptedBackend{chapters: 2}
	var progress bytes.Buffer
	a := NewAssembler(backend, 0, &progress)

	artifact, err := a.Generate(context.Background(), testSpec(2))
	if err != nil {
		t.Fatal(err)
	}

	if got := artifact.Metadata.Title; got != "Scripted Book" {
		t.Errorf("metadata title: got %q", got)
	}
	if artifact.Metadata.GeneratedAt != "2026-02-03T04:05:06Z" {
		t.Errorf("generated_at: got %q", artifact.Metadata.GeneratedAt)
	}
	if len(artifact.Outline.ChapterTitles) != 2 {
		t.Fatalf("outline: got %d titles", len(artifact.Outline.ChapterTitles))
	}
	if len(artifact.Chapters) != 2 {
		t.Fatalf("chapters: got %d", len(artifact.Chapters))
	}
	for i, ch := range artifact.Chapters {
		if ch.Number != i+1 {
			t.Errorf("chapter %d number: got %d", i, ch.Number)
		}
		if len(ch.Sections) != 6 {
			t.Errorf("chapter %d: got %d sections, want 6", i+1, len(ch.Sections))
		}
		if ch.Sections[0].Title != "Introduction" || ch.Sections[5].Title != "Conclusion" {
			t.Errorf("chapter %d section order wrong: %v", i+1, ch.SectionTitles())
		}
		if ch.Summary == "" {
			t.Errorf("chapter %d missing summary", i+1)
		}
		for j, sec := range ch.Sections {
			if sec.Chapter != i+1 || sec.Number != j+1 {
				t.Errorf("section indices wrong: %+v", sec)
			}
			if sec.Body == "" {
				t.Errorf("chapter %d section %d has empty body", i+1, j+1)
			}
		}
	}
	if artifact.Introduction != "book introduction text" {
		t.Errorf("introduction: got %q", artifact.Introduction)
	}
	if artifact.Conclusion != "book conclusion text" {
		t.Errorf("conclusion: got %q", artifact.Conclusion)
	}
	if len(artifact.Bibliography) != 3 {
		t.Errorf("bibliography: got %v", artifact.Bibliography)
	}
	if progress.Len() == 0 {
		t.Error("no progress output written")
	}
}

func TestGenerate_WrittenBookTree(t *testing.T) {
	backend := &scriptedBackend{chapters: 2}
	a := NewAssembler(backend, 0, &bytes.Buffer{})

	artifact, err := a.Generate(context.Background(), testSpec(2))
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if err := bookfs.WriteBook(artifact, dir); err != nil {
		t.Fatal(err)
	}

	for _, f := range []string{
		"metadata.json", "outline.txt", "outline.yaml", "README.md",
		"introduction.md", "conclusion.md", "bibliography.md", "full_book.md",
	} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}
	for ch := 1; ch <= 2; ch++ {
		chDir := filepath.Join(dir, bookfs.ChapterDir(ch))
		if _, err := os.Stat(filepath.Join(chDir, "full_chapter.md")); err != nil {
			t.Errorf("chapter %d: %v", ch, err)
		}
		for sec := 1; sec <= 6; sec++ {
			if _, err := os.Stat(filepath.Join(chDir, bookfs.SectionFile(sec))); err != nil {
				t.Errorf("chapter %d section %d: %v", ch, sec, err)
			}
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "full_book.md"))
	if err != nil {
		t.Fatal(err)
	}
	book := string(data)
	markers := []string{
		"# Scripted Book",
		"book introduction text",
		"# Chapter 1: Chapter Title 1",
		"# Chapter 2: Chapter Title 2",
		"book conclusion text",
		"1. Ref One (2024)",
	}
	pos := -1
	for _, m := range markers {
		idx := strings.Index(book, m)
		if idx < 0 {
			t.Fatalf("full_book.md missing %q", m)
		}
		if idx < pos {
			t.Errorf("%q appears out of order", m)
		}
		pos = idx
	}
}

func TestGenerate_SummaryThreadedIntoNextChapter(t *testing.T) {
	backend := &scriptedBackend{chapters: 2}
	a := NewAssembler(backend, 0, &bytes.Buffer{})

	if _, err := a.Generate(context.Background(), testSpec(2)); err != nil {
		t.Fatal(err)
	}

	var structurePrompts []string
	var summaries []string
	for _, p := range backend.prompts {
		if strings.Contains(p, "Create a detailed structure") {
			structurePrompts = append(structurePrompts, p)
		}
	}
	for i, p := range backend.prompts {
		if strings.Contains(p, "Create a summary") {
			summaries = append(summaries, fmt.Sprintf("summary after %d prompts", i+1))
		}
	}
	if len(structurePrompts) != 2 || len(summaries) != 2 {
		t.Fatalf("got %d structure prompts, %d summaries", len(structurePrompts), len(summaries))
	}

	if strings.Contains(structurePrompts[0], "Summary of the previous chapter") {
		t.Error("first chapter structure prompt should carry no summary")
	}
	if !strings.Contains(structurePrompts[1], summaries[0]) {
		t.Errorf("second chapter structure prompt missing first chapter summary:\n%s", structurePrompts[1])
	}
}

func TestGenerate_SectionContextCarriesPriorContent(t *testing.T) {
	backend := &scriptedBackend{chapters: 1}
	a := NewAssembler(backend, 0, &bytes.Buffer{})

	if _, err := a.Generate(context.Background(), testSpec(1)); err != nil {
		t.Fatal(err)
	}

	var sectionPrompts []string
	for _, p := range backend.prompts {
		if strings.Contains(p, "Write the section") {
			sectionPrompts = append(sectionPrompts, p)
		}
	}
	if len(sectionPrompts) != 6 {
		t.Fatalf("got %d section prompts", len(sectionPrompts))
	}

	if strings.Contains(sectionPrompts[0], "Previous content") {
		t.Error("first section prompt should carry no prior content")
	}
	if !strings.Contains(sectionPrompts[1], "Previous content") {
		t.Error("second section prompt should carry prior content")
	}
	if !strings.Contains(sectionPrompts[1], "Introduction body") {
		t.Errorf("second section prompt missing first section's text:\n%s", sectionPrompts[1])
	}
}

func TestGenerate_FatalFailureAborts(t *testing.T) {
	backend := &scriptedBackend{chapters: 2, fail: "Create a detailed structure"}
	a := NewAssembler(backend, 0, &bytes.Buffer{})

	_, err := a.Generate(context.Background(), testSpec(2))
	if err == nil {
		t.Fatal("expected pipeline failure")
	}

	// No section prompt should have been issued after the failed stage.
	for _, p := range backend.prompts {
		if strings.Contains(p, "Write the section") {
			t.Fatal("pipeline continued past a fatal stage failure")
		}
	}
}

func TestTailAndHead(t *testing.T) {
	if got := tail("abcdef", 3); got != "def" {
		t.Errorf("tail: got %q", got)
	}
	if got := tail("ab", 5); got != "ab" {
		t.Errorf("tail short input: got %q", got)
	}
	if got := head("abcdef", 3); got != "abc" {
		t.Errorf("head: got %q", got)
	}
	if got := head("ab", 5); got != "ab" {
		t.Errorf("head short input: got %q", got)
	}
	// Rune boundaries are respected for multi-byte text.
	if got := tail("привет", 3); got != "вет" {
		t.Errorf("tail runes: got %q", got)
	}
}
