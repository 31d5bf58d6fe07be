// Package note splits a markdown note into its YAML frontmatter and body and
// writes it back without disturbing bytes that were not edited.
package note

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes the frontmatter block.
const Delimiter = "---"

// Document is a parsed note.
type Document struct {
	Metadata    Metadata
	HasMetadata bool
	Body        string

	// header is the verbatim frontmatter block including both delimiter
	// lines; parsed is the metadata as it was read. Together they let
	// Serialize reproduce untouched input byte for byte.
	header string
	parsed Metadata
}

// Parse separates frontmatter from body. A block is recognised only when the
// first line is exactly "---", the content decodes to a YAML mapping (or is
// empty) and a closing "---" line follows. Any other input, including a block
// that fails to decode, is treated as body only.
func Parse(raw string) Document {
	header, block, body, ok := splitHeader(raw)
	if !ok {
		return Document{Body: raw}
	}
	md, ok := decodeBlock(block)
	if !ok {
		return Document{Body: raw}
	}
	return Document{
		Metadata:    md,
		HasMetadata: true,
		Body:        body,
		header:      header,
		parsed:      md.Clone(),
	}
}

// splitHeader locates the delimiter lines. header spans from the start of raw
// through the end of the closing delimiter line (newline included).
func splitHeader(raw string) (header, block, body string, ok bool) {
	first := strings.IndexByte(raw, '\n')
	if first < 0 || !isDelimiter(raw[:first]) {
		return "", "", "", false
	}

	pos := first + 1
	for pos <= len(raw) {
		end := strings.IndexByte(raw[pos:], '\n')
		lineEnd := len(raw)
		next := len(raw)
		if end >= 0 {
			lineEnd = pos + end
			next = lineEnd + 1
		}
		if isDelimiter(raw[pos:lineEnd]) {
			return raw[:next], raw[first+1 : pos], raw[next:], true
		}
		if end < 0 {
			break
		}
		pos = next
	}
	return "", "", "", false
}

func isDelimiter(line string) bool {
	return strings.TrimSuffix(line, "\r") == Delimiter
}

func decodeBlock(block string) (Metadata, bool) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(block), &root); err != nil {
		return Metadata{}, false
	}
	// Empty or comment-only blocks still count as frontmatter.
	if root.Kind == 0 || len(root.Content) == 0 {
		return NewMetadata(), true
	}
	md, err := MetadataFromNode(root.Content[0])
	if err != nil {
		return Metadata{}, false
	}
	return md, true
}

// Serialize renders the document. Unedited frontmatter is emitted verbatim;
// edited frontmatter is re-encoded in key order. Without metadata only the
// body is written.
func (d Document) Serialize() (string, error) {
	if !d.HasMetadata {
		return d.Body, nil
	}
	if d.header != "" && d.Metadata.Equal(d.parsed) {
		return d.header + d.Body, nil
	}

	enc, err := d.Metadata.Encode()
	if err != nil {
		return "", err
	}
	nl := d.lineEnding()
	block := string(enc)
	if nl != "\n" {
		block = strings.ReplaceAll(block, "\n", nl)
	}
	var b strings.Builder
	b.Grow(len(block) + len(d.Body) + 10)
	b.WriteString(Delimiter + nl)
	b.WriteString(block)
	b.WriteString(Delimiter + nl)
	b.WriteString(d.Body)
	return b.String(), nil
}

// lineEnding is the newline a re-encoded block is written with: the one the
// original block used, or the body's when the note had no frontmatter.
func (d Document) lineEnding() string {
	src := d.header
	if src == "" {
		src = d.Body
	}
	if i := strings.IndexByte(src, '\n'); i > 0 && src[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// Equal compares metadata structurally and the body as a string.
func (d Document) Equal(o Document) bool {
	if d.HasMetadata != o.HasMetadata || d.Body != o.Body {
		return false
	}
	if !d.HasMetadata {
		return true
	}
	return d.Metadata.Equal(o.Metadata)
}

// BodyLine returns the 1-based line of the file on which the body starts.
func (d Document) BodyLine() int {
	return strings.Count(d.header, "\n") + 1
}

// WithMetadata returns a copy of d carrying md. The copy always has a
// frontmatter block.
func (d Document) WithMetadata(md Metadata) Document {
	d.Metadata = md
	d.HasMetadata = true
	return d
}

// WithBody returns a copy of d with body replaced.
func (d Document) WithBody(body string) Document {
	d.Body = body
	return d
}
