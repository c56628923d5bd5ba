// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package book drives the sequential generation pipeline: outline,
// metadata, per-chapter sections with running summaries, and book-level
// front and back matter.
package book

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/bookgen/internal/llm"
	"github.com/pdiddy/bookgen/internal/prompt"
)

const (
	// minChapterSections and maxChapterSections bound a chapter plan:
	// introduction + 4-7 subsections + conclusion.
	minChapterSections = 6
	maxChapterSections = 9
)

// listMarkerPattern matches leading list markers the model tends to add:
// "1. ", "2) ", "- ", "* ".
var listMarkerPattern = regexp.MustCompile(`^(\d+[.)]|[-*])\s+`)

// parseLines splits a completion into trimmed non-empty lines, stripping
// leading list markers.
func parseLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = listMarkerPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// GenerateOutline produces exactly chapters chapter titles for topic.
// Overlong completions are trimmed; short ones get one supplemental
// request for the missing titles. Still coming up short is an error.
func GenerateOutline(ctx context.Context, backend llm.Backend, topic string, chapters int) ([]string, error) {
	if chapters < 1 {
		return nil, fmt.Errorf("chapter count must be positive, got %d", chapters)
	}

	p, err := prompt.Outline(topic, chapters)
	if err != nil {
		return nil, fmt.Errorf("rendering outline prompt: %w", err)
	}

	text, err := backend.Generate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("generating outline: %w", err)
	}

	titles := parseLines(text)
	if len(titles) > chapters {
		titles = titles[:chapters]
	}

	if len(titles) < chapters {
		needed := chapters - len(titles)
		topUp, err := prompt.OutlineTopUp(topic, needed, titles)
		if err != nil {
			return nil, fmt.Errorf("rendering outline top-up prompt: %w", err)
		}
		text, err := backend.Generate(ctx, topUp)
		if err != nil {
			return nil, fmt.Errorf("generating supplemental chapters: %w", err)
		}
		extra := parseLines(text)
		if len(extra) > needed {
			extra = extra[:needed]
		}
		titles = append(titles, extra...)
	}

	if len(titles) < chapters {
		return nil, fmt.Errorf("outline produced %d chapter titles, wanted %d", len(titles), chapters)
	}

	return titles, nil
}

// GenerateChapterPlan produces the ordered section titles for one
// chapter. previousSummary is the prior chapter's summary, empty for the
// first chapter. Plans outside the 6-9 section range, or whose first and
// last sections are not an introduction and a conclusion, are rejected.
func GenerateChapterPlan(ctx context.Context, backend llm.Backend, chapterTitle, previousSummary string) ([]string, error) {
	p, err := prompt.ChapterStructure(chapterTitle, previousSummary)
	if err != nil {
		return nil, fmt.Errorf("rendering chapter structure prompt: %w", err)
	}

	text, err := backend.Generate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("generating structure for chapter %q: %w", chapterTitle, err)
	}

	sections := parseLines(text)
	if err := validateChapterPlan(sections); err != nil {
		return nil, fmt.Errorf("structure for chapter %q: %w", chapterTitle, err)
	}

	return sections, nil
}

// validateChapterPlan checks the section count bounds and that the plan
// opens with an introduction and closes with a conclusion.
func validateChapterPlan(sections []string) error {
	n := len(sections)
	if n < minChapterSections || n > maxChapterSections {
		return fmt.Errorf("%d sections, want between %d and %d", n, minChapterSections, maxChapterSections)
	}
	if !strings.Contains(strings.ToLower(sections[0]), "introduction") {
		return fmt.Errorf("first section %q is not an introduction", sections[0])
	}
	if !strings.Contains(strings.ToLower(sections[n-1]), "conclusion") {
		return fmt.Errorf("last section %q is not a conclusion", sections[n-1])
	}
	return nil
}
