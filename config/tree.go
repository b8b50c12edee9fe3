package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the shape of a Node.
type Kind int

const (
	// ScalarNode holds a single string value.
	ScalarNode Kind = iota
	// MappingNode holds ordered, unique string keys.
	MappingNode
	// SequenceNode holds an ordered list of nodes.
	SequenceNode
)

func (k Kind) String() string {
	switch k {
	case ScalarNode:
		return "scalar"
	case MappingNode:
		return "mapping"
	case SequenceNode:
		return "sequence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is one value of a configuration tree.
type Node struct {
	Kind  Kind
	Value string  // ScalarNode only
	Items []*Node // SequenceNode only

	keys   []string
	fields map[string]*Node
}

// Scalar returns a scalar node.
func Scalar(value string) *Node {
	return &Node{Kind: ScalarNode, Value: value}
}

// Mapping returns an empty mapping node.
func Mapping() *Node {
	return &Node{Kind: MappingNode, fields: make(map[string]*Node)}
}

// Sequence returns a sequence node holding items.
func Sequence(items ...*Node) *Node {
	return &Node{Kind: SequenceNode, Items: items}
}

// Keys returns the mapping keys in order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != MappingNode {
		return nil
	}
	keys := make([]string, len(n.keys))
	copy(keys, n.keys)
	return keys
}

// Len returns the number of mapping entries or sequence items.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case MappingNode:
		return len(n.keys)
	case SequenceNode:
		return len(n.Items)
	}
	return 0
}

// Field returns the child stored under key.
func (n *Node) Field(key string) (*Node, bool) {
	if n == nil || n.Kind != MappingNode {
		return nil, false
	}
	child, ok := n.fields[key]
	return child, ok
}

// Set stores child under key. An existing key keeps its position.
// Set panics when n is not a mapping.
func (n *Node) Set(key string, child *Node) {
	if n.Kind != MappingNode {
		panic(fmt.Sprintf("config: Set on %s node", n.Kind))
	}
	if n.fields == nil {
		n.fields = make(map[string]*Node)
	}
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = child
}

// Lookup returns the node at a dot-separated path. An empty path is the node itself.
func (n *Node) Lookup(path string) (*Node, bool) {
	path = strings.Trim(path, ".")
	if path == "" {
		return n, n != nil
	}

	current := n
	for _, segment := range strings.Split(path, ".") {
		next, ok := current.Field(segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// SetPath stores value at a dot-separated path, creating intermediate mappings.
// Intermediate nodes that are not mappings are replaced.
func (n *Node) SetPath(path string, value *Node) {
	segments := strings.Split(path, ".")
	current := n

	for _, segment := range segments[:len(segments)-1] {
		next, exists := current.Field(segment)
		if !exists || next.Kind != MappingNode {
			next = Mapping()
			current.Set(segment, next)
		}
		current = next
	}

	current.Set(segments[len(segments)-1], value)
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case MappingNode:
		out := Mapping()
		for _, key := range n.keys {
			out.Set(key, n.fields[key].Clone())
		}
		return out
	case SequenceNode:
		items := make([]*Node, len(n.Items))
		for i, item := range n.Items {
			items[i] = item.Clone()
		}
		return Sequence(items...)
	default:
		return Scalar(n.Value)
	}
}

// Merge deep-merges overlay onto a copy of base. Mappings merge key by key,
// anything else in overlay replaces the base value.
func Merge(base, overlay *Node) *Node {
	if overlay == nil {
		return base.Clone()
	}
	if base == nil || base.Kind != MappingNode || overlay.Kind != MappingNode {
		return overlay.Clone()
	}

	out := base.Clone()
	for _, key := range overlay.keys {
		existing, _ := out.Field(key)
		out.Set(key, Merge(existing, overlay.fields[key]))
	}
	return out
}

// Flatten converts the tree into dot-notation paths mapped to scalar values.
// Sequence items are addressed by index.
func (n *Node) Flatten() map[string]string {
	flat := make(map[string]string)
	n.flatten("", flat)
	return flat
}

func (n *Node) flatten(prefix string, flat map[string]string) {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	switch n.Kind {
	case MappingNode:
		for _, key := range n.keys {
			n.fields[key].flatten(join(key), flat)
		}
	case SequenceNode:
		for i, item := range n.Items {
			item.flatten(join(fmt.Sprint(i)), flat)
		}
	default:
		flat[prefix] = n.Value
	}
}

// Interface converts the tree into map[string]any, []any and string values.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case MappingNode:
		out := make(map[string]any, len(n.keys))
		for _, key := range n.keys {
			out[key] = n.fields[key].Interface()
		}
		return out
	case SequenceNode:
		out := make([]any, len(n.Items))
		for i, item := range n.Items {
			out[i] = item.Interface()
		}
		return out
	default:
		return n.Value
	}
}

// MarshalYAML keeps mapping order when the tree is encoded with yaml.v3.
func (n *Node) MarshalYAML() (any, error) {
	return n.yamlNode(), nil
}

func (n *Node) yamlNode() *yaml.Node {
	switch n.Kind {
	case MappingNode:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range n.keys {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				n.fields[key].yamlNode(),
			)
		}
		return out
	case SequenceNode:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.Items {
			out.Content = append(out.Content, item.yamlNode())
		}
		return out
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Value}
	}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Sprintf("<%s node: %v>", n.Kind, err)
	}
	return strings.TrimSuffix(string(out), "\n")
}
