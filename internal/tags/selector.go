package tags

import "strings"

// Verdict is the outcome of classifying a present tag against a removal
// request.
type Verdict int

const (
	// Untouched tags are neither removed nor reported.
	Untouched Verdict = iota
	// Remove marks a tag that is deleted and reported as removed.
	Remove
	// Preserve marks a descendant of a targeted tag that is kept and
	// reported as preserved.
	Preserve
)

func (v Verdict) String() string {
	switch v {
	case Remove:
		return "remove"
	case Preserve:
		return "preserve"
	default:
		return "untouched"
	}
}

// Selector decides which tags a removal applies to. The same rule is used
// for frontmatter lists and inline tokens.
type Selector struct {
	Targets          []string
	Patterns         []string
	PreserveChildren bool
	Normalize        bool
}

// Classify places tag into exactly one of Untouched, Remove or Preserve:
//
//   - an exact match of a target, or a match of any pattern, is removed;
//   - a strict descendant of a target is preserved when PreserveChildren is
//     set and removed otherwise. Descent is judged under the same comparison
//     as the exact match, so without Normalize it is case-sensitive;
//   - everything else is untouched.
func (s Selector) Classify(tag string) Verdict {
	for _, t := range s.Targets {
		if Equal(tag, t, s.Normalize) {
			return Remove
		}
	}
	for _, p := range s.Patterns {
		if Match(tag, p) {
			return Remove
		}
	}
	for _, t := range s.Targets {
		if isDescendant(t, tag, s.Normalize) {
			if s.PreserveChildren {
				return Preserve
			}
			return Remove
		}
	}
	return Untouched
}

// isDescendant is IsParent under the selector's comparison rule.
func isDescendant(parent, tag string, normalize bool) bool {
	if normalize {
		return IsParent(parent, tag)
	}
	parent = Strip(parent)
	return parent != "" && strings.HasPrefix(Strip(tag), parent+Separator)
}
