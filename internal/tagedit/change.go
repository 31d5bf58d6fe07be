// Package tagedit adds and removes tags in the two places a note can carry
// them: the frontmatter tag list and inline #tag tokens in the body.
package tagedit

import (
	"fmt"

	"github.com/starford/tagvault/internal/apperr"
	"github.com/starford/tagvault/internal/tags"
)

// Location identifies where in a note a tag lives.
type Location string

// Tag locations.
const (
	LocationFrontmatter Location = "frontmatter"
	LocationContent     Location = "content"
)

// Change records one tag that was removed or deliberately preserved.
// Line and Context are set for inline tags only; Line is 1-based.
type Change struct {
	Tag      string   `json:"tag"`
	Location Location `json:"location"`
	Line     int      `json:"line,omitempty"`
	Context  string   `json:"context,omitempty"`
}

// Changes groups the records produced by one edit.
type Changes struct {
	Removed   []Change `json:"removedTags"`
	Preserved []Change `json:"preservedTags"`
}

// Empty reports whether no tag was removed or preserved.
func (c Changes) Empty() bool {
	return len(c.Removed) == 0 && len(c.Preserved) == 0
}

// Merge appends o after c.
func (c Changes) Merge(o Changes) Changes {
	return Changes{
		Removed:   append(append([]Change(nil), c.Removed...), o.Removed...),
		Preserved: append(append([]Change(nil), c.Preserved...), o.Preserved...),
	}
}

// prepareAll validates and prepares the input tags, dropping duplicates.
func prepareAll(in []string, normalize bool) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		t := tags.Prepare(raw, normalize)
		if !tags.Validate(t) {
			return nil, fmt.Errorf("%w: invalid tag %q", apperr.ErrInvalidInput, raw)
		}
		if containsTag(out, t, normalize) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func containsTag(list []string, t string, normalize bool) bool {
	for _, existing := range list {
		if tags.Equal(existing, t, normalize) {
			return true
		}
	}
	return false
}
