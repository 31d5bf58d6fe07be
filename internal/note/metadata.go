package note

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TagsKey is the frontmatter field holding the tag list.
const TagsKey = "tags"

// Metadata is an ordered frontmatter mapping backed by a YAML mapping node.
// Methods never mutate the receiver's node; editors work on a Clone.
type Metadata struct {
	node *yaml.Node
}

// NewMetadata returns an empty mapping.
func NewMetadata() Metadata {
	return Metadata{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// MetadataFromNode wraps an existing mapping node. The node is used as is.
func MetadataFromNode(n *yaml.Node) (Metadata, error) {
	if n == nil {
		return NewMetadata(), nil
	}
	if n.Kind != yaml.MappingNode {
		return Metadata{}, fmt.Errorf("note: metadata must be a mapping, got kind %d", n.Kind)
	}
	return Metadata{node: n}, nil
}

// Node exposes the underlying mapping node. Callers that modify it must own
// a Clone.
func (m Metadata) Node() *yaml.Node {
	if m.node == nil {
		return NewMetadata().node
	}
	return m.node
}

// Keys returns the mapping keys in document order.
func (m Metadata) Keys() []string {
	if m.node == nil {
		return nil
	}
	keys := make([]string, 0, len(m.node.Content)/2)
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		keys = append(keys, m.node.Content[i].Value)
	}
	return keys
}

// Len returns the number of keys.
func (m Metadata) Len() int {
	if m.node == nil {
		return 0
	}
	return len(m.node.Content) / 2
}

// Get returns the value node for key.
func (m Metadata) Get(key string) (*yaml.Node, bool) {
	if m.node == nil {
		return nil, false
	}
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == key {
			return m.node.Content[i+1], true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Tags returns the string items of the tags field. A scalar value is read as
// a comma or whitespace separated list.
func (m Metadata) Tags() []string {
	v, ok := m.Get(TagsKey)
	if !ok {
		return nil
	}
	return TagValues(v)
}

// TagValues extracts tag strings from a tags value node.
func TagValues(v *yaml.Node) []string {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(v.Content))
		for _, item := range v.Content {
			if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
				continue
			}
			if s := strings.TrimSpace(item.Value); s != "" {
				out = append(out, s)
			}
		}
		return out
	case yaml.ScalarNode:
		if v.Tag == "!!null" {
			return nil
		}
		return strings.FieldsFunc(v.Value, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
	default:
		return nil
	}
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	if m.node == nil {
		return NewMetadata()
	}
	return Metadata{node: cloneNode(m.node)}
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	c.Alias = cloneNode(n.Alias)
	return &c
}

// Equal reports structural equality: kinds, tags, values and children must
// match. Styles, comments and source positions are ignored.
func (m Metadata) Equal(o Metadata) bool {
	return nodesEqual(m.Node(), o.Node())
}

func nodesEqual(a, b *yaml.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Value != b.Value || a.ShortTag() != b.ShortTag() {
		return false
	}
	if len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if !nodesEqual(a.Content[i], b.Content[i]) {
			return false
		}
	}
	if a.Kind == yaml.AliasNode {
		return nodesEqual(a.Alias, b.Alias)
	}
	return true
}

// Encode renders the mapping as YAML with a two-space indent. An empty
// mapping encodes to no bytes.
func (m Metadata) Encode() ([]byte, error) {
	if m.Len() == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.Node()); err != nil {
		return nil, fmt.Errorf("note: encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("note: encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}
