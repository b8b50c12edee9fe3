package bootique

import (
	"fmt"
	"reflect"

	"github.com/aarrsseni/bootique/config"
)

// Binder collects what modules contribute while a runtime is being built.
// Problems are recorded and reported by CreateRuntime.
type Binder struct {
	providers      []any
	commands       []*commandEntry
	defaultCommand *commandEntry
	options        []OptionMetadata
	properties     *config.MapProperties
	vars           map[string]string
	configs        []string
	shutdownHooks  []func() error
	errs           []error
}

func newBinder() *Binder {
	return &Binder{
		properties: config.NewProperties(),
		vars:       make(map[string]string),
	}
}

func (b *Binder) fail(err error) {
	b.errs = append(b.errs, err)
}

// Provide registers a constructor. Its parameters are injected and its
// results become bindings, built once on first use.
func (b *Binder) Provide(ctor any) {
	if ctor == nil || reflect.TypeOf(ctor).Kind() != reflect.Func {
		b.fail(fmt.Errorf("provider must be a function, got %T", ctor))
		return
	}
	b.providers = append(b.providers, ctor)
}

// BindInstance binds v under its dynamic type.
func (b *Binder) BindInstance(v any) {
	if v == nil {
		b.fail(fmt.Errorf("cannot bind a nil instance without a type, use Bind"))
		return
	}
	b.providers = append(b.providers, instanceProvider(reflect.TypeOf(v), reflect.ValueOf(v)))
}

// Bind binds v under T, typically an interface v implements.
func Bind[T any](b *Binder, v T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	rv := reflect.ValueOf(&v).Elem()
	b.providers = append(b.providers, instanceProvider(t, rv))
}

// instanceProvider builds a func() T returning v.
func instanceProvider(t reflect.Type, v reflect.Value) any {
	fnType := reflect.FuncOf(nil, []reflect.Type{t}, false)
	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{v}
	}).Interface()
}
