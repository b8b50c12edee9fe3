package bootique

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/aarrsseni/bootique/config"
)

// Runtime is an assembled application: frozen arguments, the bindings of all
// modules and the registered commands. It is immutable once created.
// Configuration files are loaded on first use, not when the runtime is built.
type Runtime struct {
	args     []string
	logger   BootLogger
	injector *injector
	commands *commandRegistry
	parser   *cliParser
	shutdown *ShutdownManager

	configs       []string
	moduleProps   *config.MapProperties
	vars          map[string]string
	options       []OptionMetadata
	externalProps config.Properties

	cliOnce sync.Once
	cli     *Cli
	cliErr  error
}

func newRuntime(b *Builder) (*Runtime, error) {
	logger := b.logger
	if logger == nil {
		logger = NewSystemBootLogger(false)
	}

	modules := []Module{coreModule{}}
	if b.autoLoad {
		modules = append(modules, autoLoadedModules()...)
	}
	modules = append(modules, b.modules...)

	binder := newBinder()
	for _, m := range modules {
		m.Configure(binder)
	}
	if len(binder.errs) > 0 {
		return nil, errors.Join(binder.errs...)
	}

	commands, err := newCommandRegistry(binder.commands, binder.defaultCommand)
	if err != nil {
		return nil, err
	}
	parser, err := newCliParser(b.name, commands.metadata(), binder.options)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		args:          append([]string(nil), b.args...),
		logger:        logger,
		injector:      newInjector(),
		commands:      commands,
		parser:        parser,
		shutdown:      newShutdownManager(logger, binder.shutdownHooks),
		configs:       binder.configs,
		moduleProps:   binder.properties,
		vars:          binder.vars,
		options:       binder.options,
		externalProps: b.props,
	}

	for _, ctor := range append(rt.coreProviders(), binder.providers...) {
		if err := rt.injector.provide(ctor); err != nil {
			return nil, err
		}
	}
	if err := rt.verifyBindings(binder.providers); err != nil {
		return nil, err
	}

	logger.Trace(func() string {
		return fmt.Sprintf("runtime created: %d module(s), %d command(s), args %v", len(modules), len(commands.entries), rt.args)
	})
	return rt, nil
}

// verifyBindings fails for providers or command constructors that need an unbound type.
func (r *Runtime) verifyBindings(providers []any) error {
	var errs []error
	report := func(owner string, fn reflect.Type) {
		for _, t := range r.injector.missing(fn) {
			errs = append(errs, fmt.Errorf("%w: %s needed by %s", ErrNoBinding, t, owner))
		}
	}

	for _, p := range providers {
		report(reflect.TypeOf(p).String(), reflect.TypeOf(p))
	}
	entries := append([]*commandEntry(nil), r.commands.entries...)
	if r.commands.fallback != nil {
		entries = append(entries, r.commands.fallback)
	}
	for _, e := range entries {
		if e.ctor.IsValid() {
			report("command '"+e.metadata.Name+"'", e.ctor.Type())
		}
	}
	return errors.Join(errs...)
}

// Args returns a copy of the arguments the runtime was created with.
func (r *Runtime) Args() []string {
	return append([]string(nil), r.args...)
}

// BootLogger returns the runtime's logger.
func (r *Runtime) BootLogger() BootLogger {
	return r.logger
}

// Commands returns the metadata of the registered commands.
func (r *Runtime) Commands() []CommandMetadata {
	return r.commands.metadata()
}

// Cli parses the arguments once and returns the result.
func (r *Runtime) Cli() (*Cli, error) {
	r.cliOnce.Do(func() {
		r.cli, r.cliErr = r.parser.parse(r.args)
	})
	return r.cli, r.cliErr
}

// Get returns the singleton bound to t.
func (r *Runtime) Get(t reflect.Type) (any, error) {
	v, err := r.injector.get(t)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Instance returns the singleton bound to T.
func Instance[T any](r *Runtime) (T, error) {
	var zero T
	v, err := r.injector.get(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	out, _ := v.Interface().(T)
	return out, nil
}

// ConfigBean resolves a T from the runtime configuration at prefix.
func ConfigBean[T any](r *Runtime, prefix string) (*T, error) {
	factory, err := Instance[*config.Factory](r)
	if err != nil {
		return nil, err
	}
	return config.Resolve[T](factory, prefix)
}

// Run selects a command from the arguments and runs it.
func (r *Runtime) Run() Outcome {
	cli, err := r.Cli()
	if err != nil {
		if errors.Is(err, ErrAmbiguousCommand) {
			return failedWith(1, "ambiguous command", err)
		}
		return FailedErr(1, err)
	}

	entry, ok := r.commands.lookup(cli.CommandName())
	if !ok {
		if r.commands.fallback == nil {
			return failedWith(1, "no command", ErrNoCommand)
		}
		entry = r.commands.fallback
	}

	r.logger.Trace(func() string { return fmt.Sprintf("running command '%s'", entry.metadata.Name) })

	cmd, err := r.command(entry)
	if err != nil {
		return FailedErr(1, fmt.Errorf("command '%s': %w", entry.metadata.Name, err))
	}
	return runCommand(cmd, cli)
}

func (r *Runtime) command(e *commandEntry) (Command, error) {
	if e.instance != nil {
		return e.instance, nil
	}
	v, err := r.injector.call(e.ctor)
	if err != nil {
		return nil, err
	}
	cmd, ok := v.Interface().(Command)
	if !ok || cmd == nil {
		return nil, fmt.Errorf("constructor returned nil")
	}
	return cmd, nil
}

func runCommand(cmd Command, cli *Cli) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprint(p)
			outcome = failedWith(1, msg, fmt.Errorf("command panicked: %s", strings.TrimSpace(msg)))
		}
	}()
	return cmd.Run(cli)
}

// Shutdown runs the registered shutdown hooks once.
func (r *Runtime) Shutdown() error {
	return r.shutdown.Shutdown()
}
