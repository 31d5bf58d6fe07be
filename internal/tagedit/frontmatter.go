package tagedit

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/tagvault/internal/apperr"
	"github.com/starford/tagvault/internal/note"
	"github.com/starford/tagvault/internal/tags"
)

// AddFrontmatter returns a copy of md whose tag list contains every input tag.
// The list is created when missing; existing entries keep their order and
// other fields are left untouched. md itself is never modified.
func AddFrontmatter(md note.Metadata, in []string, normalize bool) (note.Metadata, error) {
	add, err := prepareAll(in, normalize)
	if err != nil {
		return md, err
	}

	out := md.Clone()
	seq, err := tagSequence(out)
	if err != nil {
		return md, err
	}

	present := note.TagValues(seq)
	for _, t := range add {
		if containsTag(present, t, normalize) {
			continue
		}
		seq.Content = append(seq.Content, tagScalar(t))
		present = append(present, t)
	}
	return out, nil
}

// RemoveFrontmatter drops every tag selected by sel from the tag list and
// reports what was removed or preserved. When nothing is removed md is
// returned as is.
func RemoveFrontmatter(md note.Metadata, sel tags.Selector) (note.Metadata, Changes) {
	var changes Changes
	v, ok := md.Get(note.TagsKey)
	if !ok {
		return md, changes
	}

	var kept []*yaml.Node
	removed := false
	for _, item := range tagItems(v) {
		if item.Kind != yaml.ScalarNode || item.Value == "" {
			kept = append(kept, item)
			continue
		}
		switch sel.Classify(item.Value) {
		case tags.Remove:
			removed = true
			changes.Removed = append(changes.Removed, Change{Tag: item.Value, Location: LocationFrontmatter})
		case tags.Preserve:
			changes.Preserved = append(changes.Preserved, Change{Tag: item.Value, Location: LocationFrontmatter})
			kept = append(kept, item)
		default:
			kept = append(kept, item)
		}
	}
	if !removed {
		return md, changes
	}

	out := md.Clone()
	seq, _ := out.Get(note.TagsKey)
	style := seq.Style
	if seq.Kind != yaml.SequenceNode {
		style = 0
	}
	*seq = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: style, Content: cloneAll(kept)}
	return out, changes
}

// tagSequence returns the tags value of md as a sequence node, creating or
// converting it in place. md must be a private copy.
func tagSequence(md note.Metadata) (*yaml.Node, error) {
	v, ok := md.Get(note.TagsKey)
	if !ok {
		root := md.Node()
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: note.TagsKey},
			seq,
		)
		return seq, nil
	}

	switch v.Kind {
	case yaml.SequenceNode:
		return v, nil
	case yaml.ScalarNode:
		items := tagItems(v)
		*v = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q field is not a list", apperr.ErrInvalidInput, note.TagsKey)
	}
}

// tagItems lists the entries of a tags value; a scalar string is split into
// one node per tag.
func tagItems(v *yaml.Node) []*yaml.Node {
	if v.Kind == yaml.SequenceNode {
		return v.Content
	}
	values := note.TagValues(v)
	items := make([]*yaml.Node, 0, len(values))
	for _, s := range values {
		items = append(items, tagScalar(s))
	}
	return items
}

func tagScalar(t string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t}
}

func cloneAll(nodes []*yaml.Node) []*yaml.Node {
	out := make([]*yaml.Node, len(nodes))
	for i, n := range nodes {
		c := *n
		out[i] = &c
	}
	return out
}
