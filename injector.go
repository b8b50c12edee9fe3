package bootique

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"
)

// injector wraps a dig container and remembers which types were bound, so
// lookups of unbound types fail with ErrNoBinding instead of a dig error.
type injector struct {
	container *dig.Container
	bound     map[reflect.Type]struct{}
}

func newInjector() *injector {
	return &injector{
		container: dig.New(),
		bound:     make(map[reflect.Type]struct{}),
	}
}

func (i *injector) provide(ctor any) error {
	if err := i.container.Provide(ctor); err != nil {
		return fmt.Errorf("provide %s: %w", reflect.TypeOf(ctor), dig.RootCause(err))
	}
	ft := reflect.TypeOf(ctor)
	for j := 0; j < ft.NumOut(); j++ {
		if out := ft.Out(j); out != errorType {
			i.bound[out] = struct{}{}
		}
	}
	return nil
}

func (i *injector) has(t reflect.Type) bool {
	_, ok := i.bound[t]
	return ok
}

// missing lists the parameters of fn that nothing provides.
func (i *injector) missing(fn reflect.Type) []reflect.Type {
	var out []reflect.Type
	for j := 0; j < fn.NumIn(); j++ {
		in := fn.In(j)
		if fn.IsVariadic() && j == fn.NumIn()-1 {
			continue
		}
		if dig.IsIn(in) || i.has(in) {
			continue
		}
		out = append(out, in)
	}
	return out
}

// get returns the singleton bound to t, constructing it and its dependencies on first use.
func (i *injector) get(t reflect.Type) (reflect.Value, error) {
	if t == nil {
		return reflect.Value{}, fmt.Errorf("%w: nil type", ErrNoBinding)
	}
	if !i.has(t) {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrNoBinding, t)
	}

	var out reflect.Value
	fn := reflect.MakeFunc(reflect.FuncOf([]reflect.Type{t}, nil, false), func(args []reflect.Value) []reflect.Value {
		out = args[0]
		return nil
	})
	if err := i.container.Invoke(fn.Interface()); err != nil {
		return reflect.Value{}, dig.RootCause(err)
	}
	return out, nil
}

// call invokes ctor with injected arguments and returns its first result.
// A non-nil error result is returned as the error.
func (i *injector) call(ctor reflect.Value) (reflect.Value, error) {
	ft := ctor.Type()
	in := make([]reflect.Type, ft.NumIn())
	for j := range in {
		in[j] = ft.In(j)
	}

	var result reflect.Value
	wrapper := reflect.MakeFunc(reflect.FuncOf(in, []reflect.Type{errorType}, false), func(args []reflect.Value) []reflect.Value {
		results := ctor.Call(args)
		result = results[0]
		if len(results) == 2 && !results[1].IsNil() {
			return []reflect.Value{results[1]}
		}
		return []reflect.Value{reflect.Zero(errorType)}
	})
	if err := i.container.Invoke(wrapper.Interface()); err != nil {
		return reflect.Value{}, dig.RootCause(err)
	}
	return result, nil
}
