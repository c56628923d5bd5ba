// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bookfs persists a generated BookArtifact as a directory tree:
// book-level files at the root, one subdirectory per chapter, and
// concatenated chapter and book files.
package bookfs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bookgen/pkg/types"
)

const (
	metadataFile     = "metadata.json"
	outlineTextFile  = "outline.txt"
	outlineYAMLFile  = "outline.yaml"
	readmeFile       = "README.md"
	introductionFile = "introduction.md"
	conclusionFile   = "conclusion.md"
	bibliographyFile = "bibliography.md"
	fullChapterFile  = "full_chapter.md"
	fullBookFile     = "full_book.md"

	topicSlugMax = 30
)

// nowFunc supplies the timestamp for default directory names. Tests
// override it.
var nowFunc = time.Now

// DefaultOutputDir derives a timestamped directory name from the topic,
// e.g. "book_20260203_040506_Quantum_Computing".
func DefaultOutputDir(topic string) string {
	slug := strings.ReplaceAll(topic, " ", "_")
	if r := []rune(slug); len(r) > topicSlugMax {
		slug = string(r[:topicSlugMax])
	}
	return fmt.Sprintf("book_%s_%s", nowFunc().Format("20060102_150405"), slug)
}

// ChapterDir returns the subdirectory name for a 1-based chapter number.
func ChapterDir(number int) string {
	return fmt.Sprintf("chapter_%02d", number)
}

// SectionFile returns the file name for a 1-based section number.
func SectionFile(number int) string {
	return fmt.Sprintf("section_%02d.md", number)
}

// WriteBook persists the artifact under dir, creating it and the chapter
// subdirectories as needed. Any I/O failure is fatal and returned
// wrapped; nothing is cleaned up on error.
func WriteBook(artifact *types.BookArtifact, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeMetadata(artifact, dir); err != nil {
		return err
	}
	if err := writeOutline(artifact, dir); err != nil {
		return err
	}
	if err := writeBookReadme(artifact, dir); err != nil {
		return err
	}

	if err := writeFile(filepath.Join(dir, introductionFile),
		"# Introduction\n\n"+artifact.Introduction); err != nil {
		return err
	}

	for i := range artifact.Chapters {
		if err := writeChapter(&artifact.Chapters[i], dir); err != nil {
			return err
		}
	}

	if err := writeFile(filepath.Join(dir, conclusionFile),
		"# Conclusion\n\n"+artifact.Conclusion); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, bibliographyFile),
		"# Bibliography\n\n"+bibliographyList(artifact.Bibliography)); err != nil {
		return err
	}

	return writeFullBook(artifact, dir)
}

// bookMetadata is the metadata.json document: the generated metadata
// plus the run parameters the library index needs.
type bookMetadata struct {
	types.Metadata
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

func writeMetadata(artifact *types.BookArtifact, dir string) error {
	doc := bookMetadata{
		Metadata: artifact.Metadata,
		Topic:    artifact.Spec.Topic,
		Model:    artifact.Spec.Model,
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return writeFile(filepath.Join(dir, metadataFile), string(data)+"\n")
}

func writeOutline(artifact *types.BookArtifact, dir string) error {
	titles := artifact.Outline.ChapterTitles
	if err := writeFile(filepath.Join(dir, outlineTextFile), strings.Join(titles, "\n")+"\n"); err != nil {
		return err
	}

	// Structured outline with per-chapter section lists.
	chapters := make([]types.OutlineChapter, len(artifact.Chapters))
	for i := range artifact.Chapters {
		ch := &artifact.Chapters[i]
		chapters[i] = types.OutlineChapter{
			Number:   ch.Number,
			Title:    ch.Title,
			Sections: ch.SectionTitles(),
		}
	}
	data, err := yaml.Marshal(chapters)
	if err != nil {
		return fmt.Errorf("marshaling outline: %w", err)
	}
	return writeFile(filepath.Join(dir, outlineYAMLFile), string(data))
}

func writeBookReadme(artifact *types.BookArtifact, dir string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", artifact.Metadata.Title)
	fmt.Fprintf(&b, "**Author:** %s\n\n", artifact.Metadata.Author)
	fmt.Fprintf(&b, "**Annotation:**\n\n%s\n\n", artifact.Metadata.Annotation)
	b.WriteString("## Contents\n\n")
	b.WriteString("- [Introduction](introduction.md)\n")
	for i, title := range artifact.Outline.ChapterTitles {
		fmt.Fprintf(&b, "- [Chapter %d: %s](%s/README.md)\n", i+1, title, ChapterDir(i+1))
	}
	b.WriteString("- [Conclusion](conclusion.md)\n")
	b.WriteString("- [Bibliography](bibliography.md)\n")
	return writeFile(filepath.Join(dir, readmeFile), b.String())
}

func writeChapter(chapter *types.Chapter, dir string) error {
	chDir := filepath.Join(dir, ChapterDir(chapter.Number))
	if err := os.MkdirAll(chDir, 0o755); err != nil {
		return fmt.Errorf("creating chapter directory %s: %w", chDir, err)
	}

	var readme strings.Builder
	fmt.Fprintf(&readme, "# Chapter %d: %s\n\n", chapter.Number, chapter.Title)
	readme.WriteString("## Chapter Contents\n\n")
	for _, sec := range chapter.Sections {
		fmt.Fprintf(&readme, "%d. [%s](%s)\n", sec.Number, sec.Title, SectionFile(sec.Number))
	}
	if err := writeFile(filepath.Join(chDir, readmeFile), readme.String()); err != nil {
		return err
	}

	for _, sec := range chapter.Sections {
		content := fmt.Sprintf("## %s\n\n%s", sec.Title, sec.Body)
		if err := writeFile(filepath.Join(chDir, SectionFile(sec.Number)), content); err != nil {
			return err
		}
	}

	full := fmt.Sprintf("# Chapter %d: %s\n\n%s", chapter.Number, chapter.Title, chapter.Content())
	return writeFile(filepath.Join(chDir, fullChapterFile), full)
}

func writeFullBook(artifact *types.BookArtifact, dir string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", artifact.Metadata.Title)
	fmt.Fprintf(&b, "**Author:** %s\n\n", artifact.Metadata.Author)
	fmt.Fprintf(&b, "**Annotation:**\n\n%s\n\n", artifact.Metadata.Annotation)

	b.WriteString("# Introduction\n\n")
	b.WriteString(artifact.Introduction)
	b.WriteString("\n\n")

	for i := range artifact.Chapters {
		ch := &artifact.Chapters[i]
		fmt.Fprintf(&b, "# Chapter %d: %s\n\n%s\n\n", ch.Number, ch.Title, ch.Content())
	}

	b.WriteString("# Conclusion\n\n")
	b.WriteString(artifact.Conclusion)
	b.WriteString("\n\n")

	b.WriteString("# Bibliography\n\n")
	b.WriteString(bibliographyList(artifact.Bibliography))

	return writeFile(filepath.Join(dir, fullBookFile), b.String())
}

func bibliographyList(entries []string) string {
	var b strings.Builder
	for i, ref := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, ref)
	}
	return b.String()
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
