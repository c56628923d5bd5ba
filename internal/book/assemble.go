// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package book

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/bookgen/internal/llm"
	"github.com/pdiddy/bookgen/internal/prompt"
	"github.com/pdiddy/bookgen/pkg/types"
)

const (
	// sectionContextTail is how much trailing chapter content is carried
	// into the next section's prompt.
	sectionContextTail = 1000

	// summaryInputMax is how much of a chapter is fed to the summary prompt.
	summaryInputMax = 3000
)

// nowFunc supplies the metadata timestamp. Tests override it.
var nowFunc = time.Now

// Assembler runs the generation pipeline against one backend. All calls
// are sequential; a fatal failure at any stage aborts the rest.
type Assembler struct {
	backend      llm.Backend
	sectionDelay time.Duration
	w            io.Writer
}

// NewAssembler builds an Assembler. Progress lines are written to w.
// sectionDelay is the pause between consecutive section calls; zero
// disables it.
func NewAssembler(backend llm.Backend, sectionDelay time.Duration, w io.Writer) *Assembler {
	return &Assembler{backend: backend, sectionDelay: sectionDelay, w: w}
}

// Generate runs the full pipeline for spec and returns the assembled
// artifact: outline, metadata, every chapter's sections with running
// summaries, then introduction, conclusion, and bibliography.
func (a *Assembler) Generate(ctx context.Context, spec types.BookSpec) (*types.BookArtifact, error) {
	fmt.Fprintf(a.w, "Generating book on the topic %q with %d chapters\n", spec.Topic, spec.Chapters)

	fmt.Fprintln(a.w, "creating outline")
	titles, err := GenerateOutline(ctx, a.backend, spec.Topic, spec.Chapters)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(a.w, "creating metadata")
	metaPrompt, err := prompt.Metadata(spec.Topic, titles)
	if err != nil {
		return nil, fmt.Errorf("rendering metadata prompt: %w", err)
	}
	metaText, err := a.backend.Generate(ctx, metaPrompt)
	if err != nil {
		return nil, fmt.Errorf("generating metadata: %w", err)
	}
	meta := ParseMetadata(metaText, spec.Topic)
	meta.GeneratedAt = nowFunc().UTC().Format(time.RFC3339)

	artifact := &types.BookArtifact{
		Spec:     spec,
		Metadata: meta,
		Outline:  types.Outline{ChapterTitles: titles},
	}

	fmt.Fprintln(a.w, "generating introduction")
	introPrompt, err := prompt.Introduction(meta.Title, spec.Topic, titles)
	if err != nil {
		return nil, fmt.Errorf("rendering introduction prompt: %w", err)
	}
	intro, err := a.backend.Generate(ctx, introPrompt)
	if err != nil {
		return nil, fmt.Errorf("generating introduction: %w", err)
	}
	artifact.Introduction = intro

	previousSummary := ""
	for i, title := range titles {
		fmt.Fprintf(a.w, "generating chapter %d/%d: %q\n", i+1, len(titles), title)

		chapter, err := a.generateChapter(ctx, i+1, title, previousSummary)
		if err != nil {
			return nil, err
		}

		artifact.Chapters = append(artifact.Chapters, *chapter)
		previousSummary = chapter.Summary
	}

	fmt.Fprintln(a.w, "generating conclusion")
	conclPrompt, err := prompt.Conclusion(meta.Title, spec.Topic, titles)
	if err != nil {
		return nil, fmt.Errorf("rendering conclusion prompt: %w", err)
	}
	conclusion, err := a.backend.Generate(ctx, conclPrompt)
	if err != nil {
		return nil, fmt.Errorf("generating conclusion: %w", err)
	}
	artifact.Conclusion = conclusion

	fmt.Fprintln(a.w, "creating bibliography")
	bibPrompt, err := prompt.Bibliography(spec.Topic)
	if err != nil {
		return nil, fmt.Errorf("rendering bibliography prompt: %w", err)
	}
	bibText, err := a.backend.Generate(ctx, bibPrompt)
	if err != nil {
		return nil, fmt.Errorf("generating bibliography: %w", err)
	}
	artifact.Bibliography = parseLines(bibText)

	return artifact, nil
}

// generateChapter produces one chapter: its section plan, every
// section's prose, and the summary carried into the next chapter.
func (a *Assembler) generateChapter(ctx context.Context, number int, title, previousSummary string) (*types.Chapter, error) {
	sectionTitles, err := GenerateChapterPlan(ctx, a.backend, title, previousSummary)
	if err != nil {
		return nil, err
	}

	chapter := &types.Chapter{Number: number, Title: title}

	var content strings.Builder
	for j, sectionTitle := range sectionTitles {
		fmt.Fprintf(a.w, "  generating section %d/%d: %q\n", j+1, len(sectionTitles), sectionTitle)

		p, err := prompt.Section(title, sectionTitle, tail(content.String(), sectionContextTail))
		if err != nil {
			return nil, fmt.Errorf("rendering section prompt: %w", err)
		}
		body, err := a.backend.Generate(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("generating section %q of chapter %q: %w", sectionTitle, title, err)
		}

		content.WriteString(body)
		chapter.Sections = append(chapter.Sections, types.Section{
			Chapter: number,
			Number:  j + 1,
			Title:   sectionTitle,
			Body:    body,
		})

		if a.sectionDelay > 0 && j < len(sectionTitles)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.sectionDelay):
			}
		}
	}

	summaryPrompt, err := prompt.Summary(head(content.String(), summaryInputMax))
	if err != nil {
		return nil, fmt.Errorf("rendering summary prompt: %w", err)
	}
	summary, err := a.backend.Generate(ctx, summaryPrompt)
	if err != nil {
		return nil, fmt.Errorf("summarizing chapter %q: %w", title, err)
	}
	chapter.Summary = strings.TrimSpace(summary)

	return chapter, nil
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// head returns the first n runes of s.
func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
