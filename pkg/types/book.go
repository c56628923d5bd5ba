// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// BookSpec fixes the parameters of one generation run. It is immutable
// once generation starts.
type BookSpec struct {
	// Topic is the subject the book covers.
	Topic string `json:"topic" yaml:"topic"`

	// Chapters is the number of chapters to generate.
	Chapters int `json:"chapters" yaml:"chapters"`

	// Model is the model identifier used for every generation call.
	Model string `json:"model" yaml:"model"`

	// APIURL is the base URL of the inference server.
	APIURL string `json:"api_url" yaml:"api_url"`
}

// Metadata holds the book-level strings generated from the topic.
type Metadata struct {
	// Title is the generated book title.
	Title string `json:"title" yaml:"title"`

	// Author is the generated (fictional) author name.
	Author string `json:"author" yaml:"author"`

	// Annotation is a short generated description of the book.
	Annotation string `json:"annotation" yaml:"annotation"`

	// GeneratedAt is the generation timestamp in RFC 3339 format.
	GeneratedAt string `json:"generated_at,omitempty" yaml:"generated_at,omitempty"`
}

// Section is the smallest generated unit of book content: a chapter
// introduction, a subsection, or a chapter conclusion.
type Section struct {
	// Chapter is the 1-based chapter number the section belongs to.
	Chapter int `json:"chapter" yaml:"chapter"`

	// Number is the 1-based position of the section within its chapter.
	Number int `json:"number" yaml:"number"`

	// Title is the section heading from the chapter structure.
	Title string `json:"title" yaml:"title"`

	// Body is the generated prose.
	Body string `json:"body" yaml:"body"`
}

// Chapter aggregates one chapter's sections and the running summary
// carried into the next chapter's prompts.
type Chapter struct {
	// Number is the 1-based chapter number.
	Number int `json:"number" yaml:"number"`

	// Title is the chapter title from the outline.
	Title string `json:"title" yaml:"title"`

	// Sections lists the chapter's sections in generation order.
	Sections []Section `json:"sections" yaml:"sections"`

	// Summary is the generated 150-200 word summary of the chapter.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Content returns the chapter's sections concatenated in order.
func (c *Chapter) Content() string {
	var b strings.Builder
	for _, s := range c.Sections {
		b.WriteString(s.Body)
	}
	return b.String()
}

// SectionTitles returns the chapter's section headings in order.
func (c *Chapter) SectionTitles() []string {
	titles := make([]string, len(c.Sections))
	for i, s := range c.Sections {
		titles[i] = s.Title
	}
	return titles
}

// Outline holds the chapter titles generated before any content.
type Outline struct {
	// ChapterTitles lists the chapter titles in book order.
	ChapterTitles []string `json:"chapter_titles" yaml:"chapter_titles"`
}

// OutlineChapter describes one chapter's structure for outline.yaml.
type OutlineChapter struct {
	// Number is the 1-based chapter number.
	Number int `json:"number" yaml:"number"`

	// Title is the chapter title.
	Title string `json:"title" yaml:"title"`

	// Sections lists the chapter's section headings in order.
	Sections []string `json:"sections" yaml:"sections"`
}

// BookArtifact aggregates everything one generation run produced. It is
// appended to by the single execution path and never revised.
type BookArtifact struct {
	// Spec records the run parameters.
	Spec BookSpec `json:"spec" yaml:"spec"`

	// Metadata is the generated title/author/annotation.
	Metadata Metadata `json:"metadata" yaml:"metadata"`

	// Outline lists the chapter titles.
	Outline Outline `json:"outline" yaml:"outline"`

	// Chapters holds the generated chapters in book order.
	Chapters []Chapter `json:"chapters" yaml:"chapters"`

	// Introduction is the book-level introduction.
	Introduction string `json:"introduction" yaml:"introduction"`

	// Conclusion is the book-level conclusion.
	Conclusion string `json:"conclusion" yaml:"conclusion"`

	// Bibliography lists the generated bibliographic entries.
	Bibliography []string `json:"bibliography" yaml:"bibliography"`
}
