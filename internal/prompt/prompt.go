// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the natural-language instructions sent to the
// text-generation backend. Each stage of the pipeline has one template;
// the templates interpolate the topic, outline position, and accumulated
// context without further validation.
package prompt

import (
	"bytes"
	"strings"
	"text/template"
)

var outlineTmpl = template.Must(template.New("outline").Parse(`Create a detailed outline for a book on the topic "{{.Topic}}".
The outline should contain exactly {{.Chapters}} chapters.
Each chapter should have a logical sequence and connection to the other chapters.
Each chapter title should be informative and appealing to the reader.
Return only the chapter titles, one per line.
`))

var outlineTopUpTmpl = template.Must(template.New("outline-top-up").Parse(`Create {{.Needed}} more chapters for a book on the topic "{{.Topic}}".
These chapters should complement the existing chapters:
{{.Existing}}
Each new chapter should be on a separate line.
`))

var chapterStructureTmpl = template.Must(template.New("chapter-structure").Parse(`{{if .PreviousSummary}}Summary of the previous chapter: {{.PreviousSummary}}
{{end}}Create a detailed structure for the chapter titled: "{{.ChapterTitle}}"

The chapter should have the following structure:
1. Chapter introduction
2. 4-7 logically connected subsections with informative titles
3. Chapter conclusion

Return only the section titles, one per line, including "Introduction" and "Conclusion".
`))

var sectionTmpl = template.Must(template.New("section").Parse(`{{if .PreviousContent}}Previous content: {{.PreviousContent}} (continuation)
{{end}}Write the section "{{.SectionTitle}}" for the book chapter "{{.ChapterTitle}}"

Requirements:
1. Length - approximately 500-700 words
2. Academic writing style with professional terminology
3. Substantial arguments supported by facts
4. Logical structure with smooth transitions between paragraphs
5. If this is the introduction, provide an overview of the chapter
6. If this is the conclusion, summarize and link to the next chapter

Begin writing the section:
`))

var summaryTmpl = template.Must(template.New("summary").Parse(`Create a summary (150-200 words) of the following text:

{{.Content}}...

The summary should:
1. Cover the key ideas and arguments
2. Highlight the main conclusions
3. Be written in the present tense
4. Serve as a good context for the next chapter
`))

var metadataTmpl = template.Must(template.New("metadata").Parse(`Create metadata for a book on the topic "{{.Topic}}" with the following chapters:
{{.Chapters}}

The metadata should include:
1. A professional book title (without quotes)
2. A fictional first and last name for the author
3. A brief book annotation (150-200 words)

Response format:
Title: [book title]
Author: [first and last name]
Annotation: [annotation text]
`))

var introductionTmpl = template.Must(template.New("introduction").Parse(`Write a professional introduction to the book "{{.Title}}" on the topic "{{.Topic}}".

Book structure:
{{.Chapters}}

The introduction should:
1. Capture the reader's attention
2. Explain the relevance of the topic
3. Briefly describe the structure of the book
4. Specify the target audience
5. Be approximately 800-1000 words in length
`))

var conclusionTmpl = template.Must(template.New("conclusion").Parse(`Write a professional conclusion to the book "{{.Title}}" on the topic "{{.Topic}}".

Book structure:
{{.Chapters}}

The conclusion should:
1. Summarize all the material
2. Consolidate the key ideas from all chapters
3. Propose directions for further study
4. End with a strong concluding statement
5. Be approximately 800-1000 words in length
`))

var bibliographyTmpl = template.Must(template.New("bibliography").Parse(`Create a list of 10-15 professional bibliographic sources for a book on the topic "{{.Topic}}".

The sources should:
1. Be real, current, and relevant to the topic
2. Include books, scholarly articles, and studies
3. Be formatted in academic style
4. Include author names, publication year, title, and publisher

Return only the bibliographic entries, one per line.
`))

// Outline asks for exactly chapters chapter titles, one per line.
func Outline(topic string, chapters int) (string, error) {
	return render(outlineTmpl, struct {
		Topic    string
		Chapters int
	}{topic, chapters})
}

// OutlineTopUp asks for needed additional chapter titles complementing
// the existing ones.
func OutlineTopUp(topic string, needed int, existing []string) (string, error) {
	return render(outlineTopUpTmpl, struct {
		Topic    string
		Needed   int
		Existing string
	}{topic, needed, strings.Join(existing, ", ")})
}

// ChapterStructure asks for a chapter's section titles: an introduction,
// 4-7 subsections, and a conclusion, one per line. previousSummary is the
// prior chapter's summary, empty for the first chapter.
func ChapterStructure(chapterTitle, previousSummary string) (string, error) {
	return render(chapterStructureTmpl, struct {
		ChapterTitle    string
		PreviousSummary string
	}{chapterTitle, previousSummary})
}

// Section asks for one section's prose. previousContent is the tail of
// the content generated so far for the chapter, empty for the first
// section.
func Section(chapterTitle, sectionTitle, previousContent string) (string, error) {
	return render(sectionTmpl, struct {
		ChapterTitle    string
		SectionTitle    string
		PreviousContent string
	}{chapterTitle, sectionTitle, previousContent})
}

// Summary asks for a 150-200 word summary of content (the caller passes
// a truncated chapter prefix).
func Summary(content string) (string, error) {
	return render(summaryTmpl, struct{ Content string }{content})
}

// Metadata asks for Title/Author/Annotation lines for the book.
func Metadata(topic string, chapterTitles []string) (string, error) {
	return render(metadataTmpl, struct {
		Topic    string
		Chapters string
	}{topic, strings.Join(chapterTitles, ", ")})
}

// Introduction asks for the book-level introduction.
func Introduction(title, topic string, chapterTitles []string) (string, error) {
	return render(introductionTmpl, struct {
		Title    string
		Topic    string
		Chapters string
	}{title, topic, strings.Join(chapterTitles, ", ")})
}

// Conclusion asks for the book-level conclusion.
func Conclusion(title, topic string, chapterTitles []string) (string, error) {
	return render(conclusionTmpl, struct {
		Title    string
		Topic    string
		Chapters string
	}{title, topic, strings.Join(chapterTitles, ", ")})
}

// Bibliography asks for 10-15 bibliographic entries, one per line.
func Bibliography(topic string) (string, error) {
	return render(bibliographyTmpl, struct{ Topic string }{topic})
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
