package bootique

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aarrsseni/bootique/config"
)

// Builder assembles a Runtime. It is single use: once CreateRuntime was
// called, further calls record ErrBuilderClosed.
type Builder struct {
	name     string
	args     []string
	modules  []Module
	autoLoad bool
	logger   BootLogger
	props    config.Properties
	err      error
	built    bool
}

// App starts a builder for the given arguments. By default configuration is
// overlaid by BQ_ environment variables and the config.System store.
func App(args ...string) *Builder {
	name := "bootique"
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	return &Builder{
		name:  name,
		args:  append([]string(nil), args...),
		props: config.Chain(config.EnvProperties(), config.System),
	}
}

func (b *Builder) mutate(op string, fn func()) *Builder {
	if b.built {
		b.err = fmt.Errorf("%w: %s called after CreateRuntime", ErrBuilderClosed, op)
		return b
	}
	fn()
	return b
}

// Name sets the application name shown in help output.
func (b *Builder) Name(name string) *Builder {
	return b.mutate("Name", func() { b.name = name })
}

// Args appends arguments.
func (b *Builder) Args(args ...string) *Builder {
	return b.mutate("Args", func() { b.args = append(b.args, args...) })
}

// AutoLoadModules includes every module added with RegisterModule.
func (b *Builder) AutoLoadModules() *Builder {
	return b.mutate("AutoLoadModules", func() { b.autoLoad = true })
}

// Module adds modules, configured in the order given after auto-loaded ones.
func (b *Builder) Module(modules ...Module) *Builder {
	return b.mutate("Module", func() {
		for _, m := range modules {
			if m == nil {
				b.err = fmt.Errorf("module must not be nil")
				return
			}
			b.modules = append(b.modules, m)
		}
	})
}

// ModuleFunc adds a function module.
func (b *Builder) ModuleFunc(fn func(*Binder)) *Builder {
	if fn == nil {
		return b.Module(nil)
	}
	return b.Module(ModuleFunc(fn))
}

// BootLogger replaces the default logger over os.Stdout and os.Stderr.
func (b *Builder) BootLogger(logger BootLogger) *Builder {
	return b.mutate("BootLogger", func() { b.logger = logger })
}

// Properties replaces the external property store. Nil disables external properties.
func (b *Builder) Properties(props config.Properties) *Builder {
	return b.mutate("Properties", func() { b.props = props })
}

// Err returns the first misuse recorded on the builder.
func (b *Builder) Err() error {
	return b.err
}

// CreateRuntime assembles the runtime and reports binding and CLI metadata
// problems. Configuration files are read lazily, so a missing or malformed
// file surfaces on first use of the configuration, usually from Run.
func (b *Builder) CreateRuntime() (*Runtime, error) {
	if b.built {
		b.err = fmt.Errorf("%w: runtime already created", ErrBuilderClosed)
		return nil, b.err
	}
	b.built = true
	if b.err != nil {
		return nil, b.err
	}
	return newRuntime(b)
}

// Exec creates the runtime, runs the selected command and shuts down.
// Failures are reported on the logger's stderr.
func (b *Builder) Exec() Outcome {
	logger := b.logger
	if logger == nil {
		logger = NewSystemBootLogger(false)
		b.BootLogger(logger)
	}

	rt, err := b.CreateRuntime()
	if err != nil {
		logger.Stderr(fmt.Sprintf("Error: %v", err))
		return FailedErr(1, err)
	}

	outcome := rt.Run()
	if err := rt.Shutdown(); err != nil {
		logger.Trace(func() string { return fmt.Sprintf("shutdown: %v", err) })
	}
	if !outcome.IsSuccess() && outcome.Message() != "" {
		logger.Stderr("Error: " + outcome.Message())
	}
	return outcome
}
