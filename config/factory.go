package config

import (
	"fmt"
	"reflect"
	"sync"
)

// Factory resolves beans from a configuration tree.
type Factory struct {
	root *Node

	mu          sync.RWMutex
	descriptors map[reflect.Type]*Descriptor
}

// NewFactory returns a factory over root. A nil root is an empty mapping.
func NewFactory(root *Node) *Factory {
	if root == nil {
		root = Mapping()
	}
	return &Factory{root: root, descriptors: make(map[reflect.Type]*Descriptor)}
}

// Root returns a copy of the configuration tree.
func (f *Factory) Root() *Node {
	return f.root.Clone()
}

// Register installs a hand-written descriptor, replacing the derived one for its type.
func (f *Factory) Register(d *Descriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descriptors[d.Type] = d
}

func (f *Factory) descriptor(t reflect.Type) (*Descriptor, error) {
	f.mu.RLock()
	d, ok := f.descriptors[t]
	f.mu.RUnlock()
	if ok {
		return d, nil
	}
	return Describe(t)
}

// Config populates target, a non-nil pointer to a struct, from the subtree at prefix.
// A missing prefix leaves target untouched.
func (f *Factory) Config(target any, prefix string) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}
	bean := rv.Elem()
	if bean.Kind() != reflect.Struct {
		return fmt.Errorf("target must point to a struct, got %T", target)
	}

	node, ok := f.root.Lookup(prefix)
	if !ok {
		return nil
	}
	return f.resolveBean(bean, node, prefix, false)
}

// Resolve returns a new T populated from the subtree at prefix.
func Resolve[T any](f *Factory, prefix string) (*T, error) {
	bean := new(T)
	if err := f.Config(bean, prefix); err != nil {
		return nil, err
	}
	return bean, nil
}

// resolveBean sets the attributes of bean named by node. Attributes the tree
// does not name keep their current value. Unknown keys are dropped when bean or
// any enclosing bean tolerates them.
func (f *Factory) resolveBean(bean reflect.Value, node *Node, path string, lenient bool) error {
	if node.Kind != MappingNode {
		return fmt.Errorf("%w: '%s' expected mapping for %s, found %s", ErrTypeMismatch, displayPath(path), bean.Type(), node.Kind)
	}

	d, err := f.descriptor(bean.Type())
	if err != nil {
		return fmt.Errorf("'%s': %w", displayPath(path), err)
	}
	lenient = lenient || d.IgnoreUnknown

	for _, key := range node.Keys() {
		childPath := joinPath(path, key)
		attr, ok := d.Attribute(key)
		if !ok {
			if lenient {
				continue
			}
			return fmt.Errorf("%w: '%s' on %s", ErrUnknownKey, childPath, bean.Type())
		}

		var current reflect.Value
		if attr.Get != nil {
			current = attr.Get(bean)
		}
		child, _ := node.Field(key)
		value, err := f.decodeValue(attr.Type, child, childPath, current, lenient)
		if err != nil {
			return err
		}
		attr.Set(bean, value)
	}
	return nil
}

// decodeValue converts node to t. current, when valid, is the value being
// replaced: nested beans are resolved over a copy of it.
func (f *Factory) decodeValue(t reflect.Type, node *Node, path string, current reflect.Value, lenient bool) (reflect.Value, error) {
	if current.IsValid() && (current.Type() != t || !current.CanInterface()) {
		current = reflect.Value{}
	}

	if isScalarType(t) {
		if node.Kind != ScalarNode {
			return reflect.Value{}, fmt.Errorf("%w: '%s' expected scalar %s, found %s", ErrTypeMismatch, path, t, node.Kind)
		}
		value, err := coerce(node.Value, t)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: '%s' cannot convert %q to %s: %w", ErrTypeMismatch, path, node.Value, t, err)
		}
		return value, nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		var elemCurrent reflect.Value
		if current.IsValid() && !current.IsNil() {
			elemCurrent = current.Elem()
		}
		elem, err := f.decodeValue(t.Elem(), node, path, elemCurrent, lenient)
		if err != nil {
			return reflect.Value{}, err
		}
		if elemCurrent.IsValid() {
			elemCurrent.Set(elem)
			return current, nil
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil

	case reflect.Struct:
		bean := reflect.New(t).Elem()
		if current.IsValid() {
			bean.Set(current)
		}
		if err := f.resolveBean(bean, node, path, lenient); err != nil {
			return reflect.Value{}, err
		}
		return bean, nil

	case reflect.Slice:
		return f.decodeSlice(t, node, path, lenient)

	case reflect.Map:
		return f.decodeMap(t, node, path, lenient)

	case reflect.Interface:
		if t.NumMethod() != 0 {
			break
		}
		raw := node.Interface()
		if raw == nil {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(raw), nil
	}

	return reflect.Value{}, fmt.Errorf("%w: '%s' unsupported attribute type %s", ErrTypeMismatch, path, t)
}

func (f *Factory) decodeSlice(t reflect.Type, node *Node, path string, lenient bool) (reflect.Value, error) {
	switch node.Kind {
	case SequenceNode:
		out := reflect.MakeSlice(t, 0, len(node.Items))
		for i, item := range node.Items {
			value, err := f.decodeValue(t.Elem(), item, fmt.Sprintf("%s[%d]", path, i), reflect.Value{}, lenient)
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, value)
		}
		return out, nil

	case ScalarNode:
		// comma separated scalars, mostly from property overrides
		if !isScalarType(t.Elem()) {
			break
		}
		value, err := coerce(node.Value, t)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: '%s' cannot convert %q to %s: %w", ErrTypeMismatch, path, node.Value, t, err)
		}
		return value, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: '%s' expected sequence for %s, found %s", ErrTypeMismatch, path, t, node.Kind)
}

func (f *Factory) decodeMap(t reflect.Type, node *Node, path string, lenient bool) (reflect.Value, error) {
	if t.Key().Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("%w: '%s' map key type %s is not a string", ErrTypeMismatch, path, t.Key())
	}
	if node.Kind != MappingNode {
		return reflect.Value{}, fmt.Errorf("%w: '%s' expected mapping for %s, found %s", ErrTypeMismatch, path, t, node.Kind)
	}

	out := reflect.MakeMapWithSize(t, node.Len())
	for _, key := range node.Keys() {
		child, _ := node.Field(key)
		value, err := f.decodeValue(t.Elem(), child, joinPath(path, key), reflect.Value{}, lenient)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), value)
	}
	return out, nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
