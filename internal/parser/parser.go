// Package parser extracts the title and every tag occurrence from a Markdown
// note for indexing.
package parser

import (
	"strings"

	"github.com/starford/tagvault/internal/models"
	"github.com/starford/tagvault/internal/note"
	"github.com/starford/tagvault/internal/tagedit"
	"github.com/starford/tagvault/internal/tags"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	// Refs lists every occurrence in file order, frontmatter first.
	Refs []models.TagRef
	// Tags is Refs reduced to distinct tags (compared normalized), keeping
	// the first spelling seen.
	Tags []string
}

// Parse reads raw Markdown bytes. Malformed frontmatter is treated as body,
// so Parse never fails on content.
func Parse(data []byte) *Result {
	doc := note.Parse(string(data))

	var fm map[string]any
	if doc.HasMetadata && doc.Metadata.Len() > 0 {
		_ = doc.Metadata.Node().Decode(&fm)
	}

	refs := extractRefs(doc)
	return &Result{
		Frontmatter: fm,
		Body:        doc.Body,
		Title:       deriveTitle(fm, doc.Body),
		Refs:        refs,
		Tags:        distinct(refs),
	}
}

func extractRefs(doc note.Document) []models.TagRef {
	var out []models.TagRef
	if doc.HasMetadata {
		for _, t := range doc.Metadata.Tags() {
			t = tags.Strip(strings.TrimSpace(t))
			if !tags.Validate(t) {
				continue
			}
			out = append(out, models.TagRef{Tag: t, Location: string(tagedit.LocationFrontmatter)})
		}
	}
	for _, tok := range tagedit.ScanInline(doc.Body, doc.BodyLine()) {
		out = append(out, models.TagRef{Tag: tok.Tag, Location: string(tagedit.LocationContent), Line: tok.Line})
	}
	return out
}

func distinct(refs []models.TagRef) []string {
	seen := make(map[string]struct{}, len(refs))
	var out []string
	for _, r := range refs {
		key := tags.Normalize(r.Tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r.Tag)
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
