package bootique

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Command is a unit of work selected from the command line.
type Command interface {
	Run(cli *Cli) Outcome
}

// CommandFunc adapts a function to Command.
type CommandFunc func(cli *Cli) Outcome

// Run calls f(cli).
func (f CommandFunc) Run(cli *Cli) Outcome { return f(cli) }

// CommandMetadata names a command on the command line.
type CommandMetadata struct {
	Name        string
	ShortName   string
	Description string
	Hidden      bool
}

// NewCommandMetadata returns metadata for name with its first letter as the short name.
func NewCommandMetadata(name string) CommandMetadata {
	md := CommandMetadata{Name: name}
	if name != "" {
		md.ShortName = name[:1]
	}
	return md
}

// MetadataFor derives metadata from a command's Go type: the type name minus a
// "Command" suffix, hyphenated. XCommand becomes "x", ServerStartCommand
// becomes "server-start".
func MetadataFor(t reflect.Type) CommandMetadata {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if trimmed := strings.TrimSuffix(name, "Command"); trimmed != "" {
		name = trimmed
	}
	return NewCommandMetadata(hyphenate(name))
}

func hyphenate(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			boundary := i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])))
			if boundary {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	commandType = reflect.TypeOf((*Command)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// commandEntry is a registered command: either a ready instance or a
// constructor whose parameters are injected.
type commandEntry struct {
	metadata CommandMetadata
	instance Command
	ctor     reflect.Value
}

// newCommandEntry validates source, a Command or a func(deps...) (C[, error])
// with C implementing Command.
func newCommandEntry(md *CommandMetadata, source any) (*commandEntry, error) {
	if source == nil {
		return nil, fmt.Errorf("command source is nil")
	}
	if fn, ok := source.(func(*Cli) Outcome); ok {
		source = CommandFunc(fn)
	}

	entry := &commandEntry{}
	rv := reflect.ValueOf(source)
	var resultType reflect.Type

	switch {
	case rv.Kind() == reflect.Func && !rv.Type().Implements(commandType):
		ft := rv.Type()
		if ft.IsVariadic() || ft.NumOut() < 1 || ft.NumOut() > 2 ||
			!ft.Out(0).Implements(commandType) ||
			(ft.NumOut() == 2 && ft.Out(1) != errorType) {
			return nil, fmt.Errorf("command constructor must be func(...) (Command[, error]), got %s", ft)
		}
		entry.ctor = rv
		resultType = ft.Out(0)
	default:
		cmd, ok := source.(Command)
		if !ok {
			return nil, fmt.Errorf("%T is neither a Command nor a command constructor", source)
		}
		entry.instance = cmd
		resultType = rv.Type()
	}

	if md != nil {
		entry.metadata = *md
	} else {
		base := resultType
		for base.Kind() == reflect.Ptr {
			base = base.Elem()
		}
		if base.Name() == "" || base.Kind() == reflect.Func || base.Kind() == reflect.Interface {
			return nil, fmt.Errorf("cannot derive a command name from %s, use AddCommandWithMetadata", resultType)
		}
		entry.metadata = MetadataFor(resultType)
	}
	if entry.metadata.Name == "" {
		return nil, fmt.Errorf("command name is empty for %s", resultType)
	}
	return entry, nil
}

// dependencies lists the types the constructor needs injected.
func (e *commandEntry) dependencies() []reflect.Type {
	if !e.ctor.IsValid() {
		return nil
	}
	ft := e.ctor.Type()
	deps := make([]reflect.Type, ft.NumIn())
	for i := range deps {
		deps[i] = ft.In(i)
	}
	return deps
}

// commandRegistry holds commands by name in registration order.
type commandRegistry struct {
	entries  []*commandEntry
	byName   map[string]*commandEntry
	fallback *commandEntry
}

func newCommandRegistry(entries []*commandEntry, fallback *commandEntry) (*commandRegistry, error) {
	r := &commandRegistry{byName: make(map[string]*commandEntry), fallback: fallback}
	for _, e := range entries {
		if _, exists := r.byName[e.metadata.Name]; exists {
			return nil, fmt.Errorf("%w: '%s'", ErrDuplicateCommand, e.metadata.Name)
		}
		r.byName[e.metadata.Name] = e
		r.entries = append(r.entries, e)
	}
	return r, nil
}

func (r *commandRegistry) lookup(name string) (*commandEntry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

func (r *commandRegistry) metadata() []CommandMetadata {
	out := make([]CommandMetadata, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.metadata)
	}
	return out
}
