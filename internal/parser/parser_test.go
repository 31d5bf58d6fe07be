package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - vault\n---\n# Hello\nBody text #inline\n")
	r := Parse(input)
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) != 3 || r.Tags[0] != "go" || r.Tags[1] != "vault" || r.Tags[2] != "inline" {
		t.Errorf("tags = %v, want [go vault inline]", r.Tags)
	}
	if r.Body != "# Hello\nBody text #inline\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_RefsCarryLocationAndLine(t *testing.T) {
	input := []byte("---\ntags: [a]\n---\nfirst\nsecond #b\n")
	r := Parse(input)
	if len(r.Refs) != 2 {
		t.Fatalf("refs = %v", r.Refs)
	}
	if r.Refs[0].Location != "frontmatter" || r.Refs[0].Line != 0 {
		t.Errorf("refs[0] = %+v", r.Refs[0])
	}
	// Body starts on file line 4; "#b" sits on line 5.
	if r.Refs[1].Tag != "b" || r.Refs[1].Location != "content" || r.Refs[1].Line != 5 {
		t.Errorf("refs[1] = %+v", r.Refs[1])
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse([]byte("# Just a heading\nSome text.\n"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if len(r.Tags) != 0 {
		t.Errorf("tags = %v, want none", r.Tags)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	// Invalid YAML falls back to treating everything as body.
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_TagsDedupNormalized(t *testing.T) {
	r := Parse([]byte("---\ntags: [ProjectActive]\n---\n#project-active #other #Other\n"))
	if len(r.Tags) != 2 || r.Tags[0] != "ProjectActive" || r.Tags[1] != "other" {
		t.Errorf("tags = %v, want [ProjectActive other]", r.Tags)
	}
	if len(r.Refs) != 4 {
		t.Errorf("refs = %d, want 4", len(r.Refs))
	}
}

func TestParse_SkipsInvalidFrontmatterTags(t *testing.T) {
	r := Parse([]byte("---\ntags:\n  - \"#ok\"\n  - \"not ok!\"\n---\n"))
	if len(r.Tags) != 1 || r.Tags[0] != "ok" {
		t.Errorf("tags = %v, want [ok]", r.Tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	body := "# H1 Title\ntext"
	title := deriveTitle(fm, body)
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}
