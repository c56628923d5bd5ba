// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package book

import (
	"strings"

	"github.com/pdiddy/bookgen/pkg/types"
)

// ParseMetadata extracts Title/Author/Annotation lines from a metadata
// completion. Missing fields keep placeholder values derived from the
// topic; lines without a recognized key extend a started annotation,
// so multi-line annotations survive parsing.
func ParseMetadata(response, topic string) types.Metadata {
	meta := types.Metadata{
		Title:  "Book on " + topic,
		Author: "Author Not Specified",
	}

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Title:"):
			meta.Title = strings.TrimSpace(strings.TrimPrefix(line, "Title:"))
		case strings.HasPrefix(line, "Author:"):
			meta.Author = strings.TrimSpace(strings.TrimPrefix(line, "Author:"))
		case strings.HasPrefix(line, "Annotation:"):
			meta.Annotation = strings.TrimSpace(strings.TrimPrefix(line, "Annotation:"))
		default:
			if meta.Annotation != "" && line != "" {
				meta.Annotation += " " + line
			}
		}
	}

	return meta
}
