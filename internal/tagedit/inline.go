package tagedit

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/tagvault/internal/apperr"
	"github.com/starford/tagvault/internal/tags"
)

// Position selects where AddInline places the new tag paragraph.
type Position string

// Insert positions.
const (
	PositionStart Position = "start"
	PositionEnd   Position = "end"
)

// ContextRadius is the number of runes kept on each side of a token in a
// change record's context snippet.
const ContextRadius = 24

// codeMask replaces masked code-span bytes. It is neither whitespace nor a
// tag rune, so tokens can neither start nor end against a code span.
const codeMask = '\x00'

// Token is an inline #tag occurrence. Start and End are byte offsets of the
// token (including "#") within its line.
type Token struct {
	Tag   string
	Line  int
	Start int
	End   int
}

// ScanInline returns every inline tag in body outside fenced code blocks and
// inline code spans. startLine is the file line number of the body's first
// line.
func ScanInline(body string, startLine int) []Token {
	var out []Token
	forEachLine(body, func(idx int, line string) {
		for _, tok := range lineTokens(line) {
			tok.Line = startLine + idx
			out = append(out, tok)
		}
	})
	return out
}

// RemoveInline deletes every token selected by sel. Each deletion also takes
// one adjacent whitespace character; a line left blank is kept as an empty
// line so line numbers stay stable.
func RemoveInline(body string, sel tags.Selector, startLine int) (string, Changes) {
	var changes Changes
	lines := strings.Split(body, "\n")

	forEachLine(body, func(idx int, line string) {
		var cuts []Token
		for _, tok := range lineTokens(line) {
			tok.Line = startLine + idx
			switch sel.Classify(tok.Tag) {
			case tags.Remove:
				cuts = append(cuts, tok)
				changes.Removed = append(changes.Removed, inlineChange(line, tok))
			case tags.Preserve:
				changes.Preserved = append(changes.Preserved, inlineChange(line, tok))
			}
		}
		if len(cuts) == 0 {
			return
		}

		edited := line
		for i := len(cuts) - 1; i >= 0; i-- {
			edited = cutToken(edited, cuts[i].Start, cuts[i].End)
		}
		if !endsWithSpace(line) {
			edited = strings.TrimRight(edited, " \t")
		}
		if strings.TrimSpace(edited) == "" {
			edited = ""
			if strings.HasSuffix(line, "\r") {
				edited = "\r"
			}
		}
		lines[idx] = edited
	})

	if changes.Removed == nil {
		return body, changes
	}
	return strings.Join(lines, "\n"), changes
}

// AddInline inserts the tags as one "#a #b" paragraph at the start or end of
// the trimmed body. Tags already present inline are skipped; when nothing is
// left to add the body is returned unchanged.
func AddInline(body string, in []string, normalize bool, pos Position) (string, error) {
	add, err := prepareAll(in, normalize)
	if err != nil {
		return body, err
	}

	var present []string
	for _, tok := range ScanInline(body, 1) {
		present = append(present, tok.Tag)
	}
	var fresh []string
	for _, t := range add {
		if !containsTag(present, t, normalize) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) == 0 {
		return body, nil
	}

	para := "#" + strings.Join(fresh, " #")
	trimmed := strings.TrimRight(strings.TrimLeft(body, "\r\n"), " \t\r\n")
	if trimmed == "" {
		return para + "\n", nil
	}

	switch pos {
	case PositionStart:
		return para + "\n\n" + trimmed + "\n", nil
	case PositionEnd, "":
		return trimmed + "\n\n" + para + "\n", nil
	default:
		return body, fmt.Errorf("%w: unknown position %q", apperr.ErrInvalidInput, pos)
	}
}

// forEachLine calls fn for every body line that is not part of a fenced code
// block (fence marker lines included).
func forEachLine(body string, fn func(idx int, line string)) {
	var f fence
	for idx, line := range strings.Split(body, "\n") {
		if f.update(line) || f.open {
			continue
		}
		fn(idx, line)
	}
}

// fence tracks whether the scanner is inside a ``` or ~~~ block. A block is
// closed by a run of the same character at least as long as the opener.
type fence struct {
	open bool
	ch   byte
	n    int
}

func (f *fence) update(line string) bool {
	s := strings.TrimLeft(line, " \t")
	for strings.HasPrefix(s, ">") {
		s = strings.TrimLeft(strings.TrimPrefix(s, ">"), " \t")
	}
	if len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return false
	}
	ch := s[0]
	n := 0
	for n < len(s) && s[n] == ch {
		n++
	}
	if n < 3 {
		return false
	}

	if !f.open {
		f.open, f.ch, f.n = true, ch, n
		return true
	}
	if ch == f.ch && n >= f.n && strings.TrimSpace(s[n:]) == "" {
		f.open, f.ch, f.n = false, 0, 0
		return true
	}
	return false
}

// maskCode overwrites inline code spans (`x`, ``x ` y``) with codeMask so
// byte offsets into the line are preserved.
func maskCode(line string) string {
	b := []byte(line)
	i := 0
	for i < len(b) {
		if b[i] != '`' {
			i++
			continue
		}
		start := i
		for i < len(b) && b[i] == '`' {
			i++
		}
		openLen := i - start

		for j := i; j < len(b); {
			if b[j] != '`' {
				j++
				continue
			}
			k := j
			for k < len(b) && b[k] == '`' {
				k++
			}
			if k-j == openLen {
				for m := start; m < k; m++ {
					b[m] = codeMask
				}
				i = k
				break
			}
			j = k
		}
	}
	return string(b)
}

func lineTokens(line string) []Token {
	masked := maskCode(line)
	var out []Token
	for i := 0; i < len(masked); i++ {
		if masked[i] != '#' {
			continue
		}
		if i > 0 {
			prev, _ := utf8.DecodeLastRuneInString(masked[:i])
			if !unicode.IsSpace(prev) {
				continue
			}
		}
		j := i + 1
		for j < len(masked) {
			r, size := utf8.DecodeRuneInString(masked[j:])
			if !isTagRune(r) {
				break
			}
			j += size
		}
		if j < len(masked) {
			next, _ := utf8.DecodeRuneInString(masked[j:])
			if !unicode.IsSpace(next) {
				i = j - 1
				continue
			}
		}
		tag := masked[i+1 : j]
		if tags.Validate(tag) {
			out = append(out, Token{Tag: tag, Start: i, End: j})
		}
		i = j - 1
	}
	return out
}

func isTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '/'
}

// cutToken removes line[start:end] and one neighbouring whitespace byte,
// preferring the one after the token.
func cutToken(line string, start, end int) string {
	switch {
	case end < len(line) && isBlank(line[end]):
		return line[:start] + line[end+1:]
	case start > 0 && isBlank(line[start-1]):
		return line[:start-1] + line[end:]
	default:
		return line[:start] + line[end:]
	}
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

func endsWithSpace(line string) bool {
	return line != "" && isBlank(line[len(line)-1])
}

func inlineChange(line string, tok Token) Change {
	return Change{
		Tag:      tok.Tag,
		Location: LocationContent,
		Line:     tok.Line,
		Context:  snippet(line, tok.Start, tok.End),
	}
}

func snippet(line string, start, end int) string {
	before := line[:start]
	after := line[end:]
	prefix, suffix := "", ""

	if n := utf8.RuneCountInString(before); n > ContextRadius {
		r := []rune(before)
		before = string(r[n-ContextRadius:])
		prefix = "..."
	}
	if n := utf8.RuneCountInString(after); n > ContextRadius {
		r := []rune(after)
		after = string(r[:ContextRadius])
		suffix = "..."
	}
	return prefix + strings.TrimSpace(before+line[start:end]+after) + suffix
}
