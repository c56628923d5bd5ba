// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds one indexed book with its sections for export.
type ExportEntry struct {
	BookRecord `yaml:",inline"`
	Contents   []ExportSection `json:"contents" yaml:"contents"`
}

// ExportSection is one section in an export entry.
type ExportSection struct {
	Chapter      int    `json:"chapter" yaml:"chapter"`
	ChapterTitle string `json:"chapter_title" yaml:"chapter_title"`
	Section      int    `json:"section" yaml:"section"`
	Title        string `json:"title" yaml:"title"`
	Content      string `json:"content" yaml:"content"`
}

const exportLimit = 100000

// ExportYAML writes the whole library to library/index/export.yaml.
func (s *Store) ExportYAML(ctx context.Context) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}

	path := filepath.Join(s.libraryDir, indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the whole library to library/index/export.json.
func (s *Store) ExportJSON(ctx context.Context) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}

	path := filepath.Join(s.libraryDir, indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	books, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var entries []ExportEntry
	for _, b := range books {
		sections, err := s.Search(ctx, QueryOptions{BookID: b.ID, MaxResults: exportLimit})
		if err != nil {
			return nil, err
		}

		entry := ExportEntry{BookRecord: b}
		for _, sec := range sections {
			entry.Contents = append(entry.Contents, ExportSection{
				Chapter:      sec.Chapter,
				ChapterTitle: sec.ChapterTitle,
				Section:      sec.Section,
				Title:        sec.SectionTitle,
				Content:      sec.Content,
			})
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
