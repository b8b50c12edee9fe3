package bootique

import (
	"fmt"
	"strings"

	"github.com/aarrsseni/bootique/config"
)

// Extender adds commands, options and configuration through a Binder.
type Extender struct {
	b *Binder
}

// Extend returns an Extender for b.
func Extend(b *Binder) *Extender {
	return &Extender{b: b}
}

// AddCommand registers a command, either a Command value or a constructor
// func(deps...) (C[, error]). Metadata is derived from the command's type name.
func (e *Extender) AddCommand(source any) *Extender {
	return e.addCommand(nil, source)
}

// AddCommandWithMetadata registers a command under explicit metadata.
// source may also be a plain func(*Cli) Outcome.
func (e *Extender) AddCommandWithMetadata(md CommandMetadata, source any) *Extender {
	return e.addCommand(&md, source)
}

func (e *Extender) addCommand(md *CommandMetadata, source any) *Extender {
	entry, err := newCommandEntry(md, source)
	if err != nil {
		e.b.fail(fmt.Errorf("add command: %w", err))
		return e
	}
	e.b.commands = append(e.b.commands, entry)
	return e
}

// SetDefaultCommand sets the command run when the arguments select none.
func (e *Extender) SetDefaultCommand(source any) *Extender {
	entry, err := newCommandEntry(&CommandMetadata{Name: "default"}, source)
	if err != nil {
		e.b.fail(fmt.Errorf("set default command: %w", err))
		return e
	}
	e.b.defaultCommand = entry
	return e
}

// AddOption declares a command line option.
func (e *Extender) AddOption(o OptionMetadata) *Extender {
	e.b.options = append(e.b.options, o)
	return e
}

// SetProperty sets a configuration property. Keys without the "bq." prefix
// are prefixed.
func (e *Extender) SetProperty(key, value string) *Extender {
	if !strings.HasPrefix(key, config.Prefix) {
		key = config.Prefix + key
	}
	e.b.properties.Set(key, value)
	return e
}

// DeclareVar feeds the configuration path from the environment variable name.
// An empty name uses config.EnvName(path), so the variable is read even when
// the runtime ignores BQ_ variables.
func (e *Extender) DeclareVar(path, name string) *Extender {
	e.b.vars[path] = name
	return e
}

// AddConfig adds a configuration file loaded before those given with --config.
func (e *Extender) AddConfig(path string) *Extender {
	e.b.configs = append(e.b.configs, path)
	return e
}

// OnShutdown registers a hook run by Runtime.Shutdown.
func (e *Extender) OnShutdown(fn func() error) *Extender {
	if fn != nil {
		e.b.shutdownHooks = append(e.b.shutdownHooks, fn)
	}
	return e
}
