// Package tags implements the tag grammar: validation, normalization and
// hierarchical/wildcard matching of vault tags.
//
// A tag is one or more non-empty segments separated by "/". Each segment is
// made of letters, digits, "-" and "_". Patterns follow the same grammar but
// any segment may contain "*".
package tags

import (
	"regexp"
	"strings"
	"unicode"
)

// Separator splits a hierarchical tag into segments.
const Separator = "/"

var (
	segmentRe        = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)
	patternSegmentRe = regexp.MustCompile(`^[\p{L}\p{N}_*-]+$`)
)

// Strip removes a single leading "#" and surrounding whitespace.
func Strip(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "#")
}

// Validate reports whether tag satisfies the segment grammar.
func Validate(tag string) bool {
	return validSegments(tag, segmentRe)
}

// ValidatePattern reports whether p is a well-formed pattern.
func ValidatePattern(p string) bool {
	return validSegments(p, patternSegmentRe)
}

func validSegments(s string, re *regexp.Regexp) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, Separator) {
		if !re.MatchString(seg) {
			return false
		}
	}
	return true
}

// Normalize returns the canonical form of tag: leading "#" removed, every
// segment lower-cased with casing boundaries and runs of spaces turned into "-".
//
//	ProjectActive      -> project-active
//	#Work/HTMLParser   -> work/html-parser
//	Meeting Notes      -> meeting-notes
func Normalize(tag string) string {
	segs := strings.Split(Strip(tag), Separator)
	for i, seg := range segs {
		segs[i] = normalizeSegment(seg)
	}
	return strings.Join(segs, Separator)
}

func normalizeSegment(seg string) string {
	runes := []rune(strings.TrimSpace(seg))
	var b strings.Builder
	b.Grow(len(runes) + 4)

	var last rune
	write := func(r rune) {
		b.WriteRune(r)
		last = r
	}

	for i, r := range runes {
		switch {
		case unicode.IsSpace(r):
			if last != '-' && last != '_' && last != 0 {
				write('-')
			}
		case unicode.IsUpper(r):
			if i > 0 && camelBoundary(runes, i) && last != '-' && last != '_' {
				write('-')
			}
			write(unicode.ToLower(r))
		default:
			write(unicode.ToLower(r))
		}
	}
	return b.String()
}

// camelBoundary reports whether the upper-case rune at i starts a new word:
// after a lower-case letter or digit, or as the last capital of an acronym
// that is followed by a lower-case letter ("HTMLParser").
func camelBoundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
		return true
	}
	return false
}

// Prepare returns the form of tag that is written into a note: normalized
// when normalize is set, otherwise only stripped of a leading "#".
func Prepare(tag string, normalize bool) string {
	if normalize {
		return Normalize(tag)
	}
	return Strip(tag)
}

// Equal compares two tags. With normalize set the comparison is on canonical
// forms; otherwise the verbatim (stripped) strings must be identical.
func Equal(a, b string, normalize bool) bool {
	return Prepare(a, normalize) == Prepare(b, normalize)
}

// Segments splits a tag into its hierarchy levels.
func Segments(tag string) []string {
	return strings.Split(tag, Separator)
}
