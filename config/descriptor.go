package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// TagName is the struct tag naming a bean attribute.
const TagName = "config"

// UnknownKeysIgnorer is implemented by beans that drop tree keys they have no attribute for.
type UnknownKeysIgnorer interface {
	IgnoreUnknownKeys() bool
}

var unknownKeysIgnorerType = reflect.TypeOf((*UnknownKeysIgnorer)(nil)).Elem()

// Attribute is one settable property of a bean.
type Attribute struct {
	Name string
	Type reflect.Type
	// Set stores value into bean, an addressable struct value.
	Set func(bean, value reflect.Value)
	// Get reads the attribute; optional, used by Encode.
	Get func(bean reflect.Value) reflect.Value
}

// Descriptor is the schema of one bean type.
type Descriptor struct {
	Type          reflect.Type
	IgnoreUnknown bool

	attrs map[string]*Attribute
	order []string
}

// NewDescriptor builds a hand-written descriptor for the struct type t.
func NewDescriptor(t reflect.Type, ignoreUnknown bool, attrs ...Attribute) (*Descriptor, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("descriptor type must be a struct, got %v", t)
	}
	d := &Descriptor{Type: t, IgnoreUnknown: ignoreUnknown, attrs: make(map[string]*Attribute)}
	for i := range attrs {
		attr := attrs[i]
		if attr.Name == "" || attr.Type == nil || attr.Set == nil {
			return nil, fmt.Errorf("attribute %d of %s needs a name, type and setter", i, t)
		}
		if err := d.add(&attr); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Descriptor) add(attr *Attribute) error {
	if _, exists := d.attrs[attr.Name]; exists {
		return fmt.Errorf("duplicate attribute %q on %s", attr.Name, d.Type)
	}
	d.attrs[attr.Name] = attr
	d.order = append(d.order, attr.Name)
	return nil
}

// Attribute returns the attribute called name.
func (d *Descriptor) Attribute(name string) (*Attribute, bool) {
	attr, ok := d.attrs[name]
	return attr, ok
}

// Attributes returns all attributes in declaration order.
func (d *Descriptor) Attributes() []*Attribute {
	out := make([]*Attribute, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.attrs[name])
	}
	return out
}

var derived sync.Map // reflect.Type -> *Descriptor

// Describe derives the descriptor of a struct type from its exported fields.
// Results are cached per type.
func Describe(t reflect.Type) (*Descriptor, error) {
	if cached, ok := derived.Load(t); ok {
		return cached.(*Descriptor), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("bean type must be a struct, got %s", t)
	}

	d := &Descriptor{Type: t, attrs: make(map[string]*Attribute)}
	if reflect.PointerTo(t).Implements(unknownKeysIgnorerType) {
		d.IgnoreUnknown = reflect.New(t).Interface().(UnknownKeysIgnorer).IgnoreUnknownKeys()
	}
	if err := collectFields(d, t, nil); err != nil {
		return nil, err
	}

	actual, _ := derived.LoadOrStore(t, d)
	return actual.(*Descriptor), nil
}

func collectFields(d *Descriptor, t reflect.Type, parent []int) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), parent...), i)
		tag := field.Tag.Get(TagName)
		if tag == "-" {
			continue
		}

		// embedded structs contribute their attributes
		if field.Anonymous && tag == "" && field.Type.Kind() == reflect.Struct {
			if err := collectFields(d, field.Type, index); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() {
			continue
		}

		name := strings.Split(tag, ",")[0]
		if name == "" {
			name = lowerFirst(field.Name)
		}
		attr := &Attribute{
			Name: name,
			Type: field.Type,
			Set: func(bean, value reflect.Value) {
				bean.FieldByIndex(index).Set(value)
			},
			Get: func(bean reflect.Value) reflect.Value {
				return bean.FieldByIndex(index)
			},
		}
		if err := d.add(attr); err != nil {
			return err
		}
	}
	return nil
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
