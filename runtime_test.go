package bootique

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aarrsseni/bootique/config"
)

type output struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// testApp returns a builder isolated from the environment and config.System.
func testApp(args ...string) (*Builder, *output) {
	out := &output{}
	b := App(args...).
		Name("app").
		Properties(config.NewProperties()).
		BootLogger(NewBootLogger(&out.stdout, &out.stderr, false))
	return b, out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type Greeter interface {
	Greet() string
}

type englishGreeter struct{ name string }

func (g englishGreeter) Greet() string { return "hello " + g.name }

type GreetCommand struct {
	greeter Greeter
	logger  BootLogger
}

func NewGreetCommand(g Greeter, logger BootLogger) *GreetCommand {
	return &GreetCommand{greeter: g, logger: logger}
}

func (c *GreetCommand) Run(*Cli) Outcome {
	c.logger.Stdout(c.greeter.Greet())
	return Succeeded()
}

type greetConfig struct {
	Name  string `config:"name"`
	Count int    `config:"count"`
}

// TestRuntimeBindings tests dependency injection through modules
func TestRuntimeBindings(t *testing.T) {
	t.Run("InterfaceBinding", func(t *testing.T) {
		b, out := testApp("--greet")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Bind[Greeter](b, englishGreeter{name: "world"})
			Extend(b).AddCommand(NewGreetCommand)
		}).CreateRuntime()
		require.NoError(t, err)

		o := rt.Run()
		assert.True(t, o.IsSuccess(), o.String())
		assert.Equal(t, "hello world\n", out.stdout.String())
	})

	t.Run("ProviderSingleton", func(t *testing.T) {
		calls := 0
		b, _ := testApp()
		rt, err := b.ModuleFunc(func(b *Binder) {
			b.Provide(func() *englishGreeter {
				calls++
				return &englishGreeter{name: "once"}
			})
		}).CreateRuntime()
		require.NoError(t, err)

		first, err := Instance[*englishGreeter](rt)
		require.NoError(t, err)
		second, err := Instance[*englishGreeter](rt)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, calls)
	})

	t.Run("BindInstanceAndGet", func(t *testing.T) {
		b, _ := testApp()
		rt, err := b.ModuleFunc(func(b *Binder) {
			b.BindInstance(englishGreeter{name: "x"})
		}).CreateRuntime()
		require.NoError(t, err)

		v, err := rt.Get(reflect.TypeOf(englishGreeter{}))
		require.NoError(t, err)
		assert.Equal(t, "hello x", v.(englishGreeter).Greet())
	})

	t.Run("UnboundType", func(t *testing.T) {
		b, _ := testApp()
		rt, err := b.CreateRuntime()
		require.NoError(t, err)

		_, err = Instance[Greeter](rt)
		assert.ErrorIs(t, err, ErrNoBinding)
		_, err = rt.Get(nil)
		assert.ErrorIs(t, err, ErrNoBinding)
	})

	t.Run("CoreBindings", func(t *testing.T) {
		b, _ := testApp()
		rt, err := b.CreateRuntime()
		require.NoError(t, err)

		self, err := Instance[*Runtime](rt)
		require.NoError(t, err)
		assert.Same(t, rt, self)

		logger, err := Instance[BootLogger](rt)
		require.NoError(t, err)
		assert.Equal(t, rt.BootLogger(), logger)
	})

	t.Run("MissingProviderDependency", func(t *testing.T) {
		b, _ := testApp()
		_, err := b.ModuleFunc(func(b *Binder) {
			b.Provide(func(g Greeter) *englishGreeter { return &englishGreeter{} })
		}).CreateRuntime()
		assert.ErrorIs(t, err, ErrNoBinding)
	})

	t.Run("MissingCommandDependency", func(t *testing.T) {
		b, _ := testApp()
		_, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddCommand(NewGreetCommand)
		}).CreateRuntime()
		require.ErrorIs(t, err, ErrNoBinding)
		assert.Contains(t, err.Error(), "command 'greet'")
	})

	t.Run("InvalidProvider", func(t *testing.T) {
		b, _ := testApp()
		_, err := b.ModuleFunc(func(b *Binder) {
			b.Provide("not a function")
			b.BindInstance(nil)
		}).CreateRuntime()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider must be a function")
		assert.Contains(t, err.Error(), "nil instance")
	})
}

// TestRuntimeRun tests command dispatch and failure outcomes
func TestRuntimeRun(t *testing.T) {
	ok := func(*Cli) Outcome { return Succeeded() }

	t.Run("Help", func(t *testing.T) {
		b, out := testApp("--help")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddCommandWithMetadata(CommandMetadata{Name: "run", ShortName: "r", Description: "Runs it."}, ok)
		}).CreateRuntime()
		require.NoError(t, err)

		o := rt.Run()
		require.True(t, o.IsSuccess(), o.String())
		assert.Contains(t, out.stdout.String(), "Usage:\n  app [options]")
		assert.Contains(t, out.stdout.String(), "-h, --help")
		assert.Contains(t, out.stdout.String(), "Prints this message.")
		assert.Contains(t, out.stdout.String(), "Runs it.")
	})

	t.Run("NoCommand", func(t *testing.T) {
		b, _ := testApp()
		rt, err := b.CreateRuntime()
		require.NoError(t, err)

		o := rt.Run()
		assert.Equal(t, 1, o.ExitCode())
		assert.Equal(t, "no command", o.Message())
		assert.ErrorIs(t, o.Err(), ErrNoCommand)
	})

	t.Run("DefaultCommand", func(t *testing.T) {
		b, out := testApp()
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).SetDefaultCommand(func(*Cli) Outcome {
				out.stdout.WriteString("default")
				return Succeeded()
			})
		}).CreateRuntime()
		require.NoError(t, err)

		assert.True(t, rt.Run().IsSuccess())
		assert.Equal(t, "default", out.stdout.String())
	})

	t.Run("AmbiguousCommand", func(t *testing.T) {
		b, _ := testApp("--alpha", "--beta")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).
				AddCommandWithMetadata(NewCommandMetadata("alpha"), ok).
				AddCommandWithMetadata(NewCommandMetadata("beta"), ok)
		}).CreateRuntime()
		require.NoError(t, err)

		o := rt.Run()
		assert.Equal(t, 1, o.ExitCode())
		assert.Equal(t, "ambiguous command", o.Message())
		assert.ErrorIs(t, o.Err(), ErrAmbiguousCommand)
	})

	t.Run("UnknownFlagRunsDefault", func(t *testing.T) {
		b, out := testApp("-x")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).SetDefaultCommand(func(*Cli) Outcome {
				out.stdout.WriteString("default")
				return Succeeded()
			})
		}).CreateRuntime()
		require.NoError(t, err)

		o := rt.Run()
		assert.True(t, o.IsSuccess(), o.String())
		assert.Equal(t, "default", out.stdout.String())
	})

	t.Run("UnknownFlagNoCommand", func(t *testing.T) {
		b, _ := testApp("-x", "--unknown")
		rt, err := b.CreateRuntime()
		require.NoError(t, err)

		o := rt.Run()
		assert.Equal(t, 1, o.ExitCode())
		assert.Equal(t, "no command", o.Message())
		assert.ErrorIs(t, o.Err(), ErrNoCommand)
	})

	t.Run("BadArgumentsFailOnRun", func(t *testing.T) {
		b, _ := testApp("--level")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddOption(OptionMetadata{Name: "level", ValueName: "level"})
		}).CreateRuntime()
		require.NoError(t, err, "arguments are parsed on first use")

		o := rt.Run()
		assert.Equal(t, 1, o.ExitCode())
		assert.Contains(t, o.Message(), "level")
	})

	t.Run("CommandOutcome", func(t *testing.T) {
		b, _ := testApp("-x")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddCommandWithMetadata(NewCommandMetadata("x"), func(*Cli) Outcome {
				return Failed(3, "refused")
			})
		}).CreateRuntime()
		require.NoError(t, err)
		assert.Equal(t, "[3: refused]", rt.Run().String())
	})

	t.Run("Panic", func(t *testing.T) {
		b, _ := testApp("-x")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddCommandWithMetadata(NewCommandMetadata("x"), func(*Cli) Outcome {
				panic("boom")
			})
		}).CreateRuntime()
		require.NoError(t, err)

		o := rt.Run()
		assert.Equal(t, 1, o.ExitCode())
		assert.Equal(t, "boom", o.Message())
	})

	t.Run("ConstructorError", func(t *testing.T) {
		b, _ := testApp("--greet")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddCommand(func() (*GreetCommand, error) {
				return nil, errors.New("no greeter")
			})
		}).CreateRuntime()
		require.NoError(t, err)

		o := rt.Run()
		assert.Equal(t, 1, o.ExitCode())
		assert.Contains(t, o.Message(), "command 'greet'")
		assert.Contains(t, o.Message(), "no greeter")
	})

	t.Run("StandaloneArguments", func(t *testing.T) {
		var got []string
		b, _ := testApp("-x", "one", "two")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddCommandWithMetadata(NewCommandMetadata("x"), func(cli *Cli) Outcome {
				got = cli.StandaloneArguments()
				return Succeeded()
			})
		}).CreateRuntime()
		require.NoError(t, err)

		require.True(t, rt.Run().IsSuccess())
		assert.Equal(t, []string{"one", "two"}, got)
	})
}

// TestRuntimeConfig tests configuration sources and their precedence
func TestRuntimeConfig(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yml", "greet:\n  name: base\n  count: 1\n")
	override := writeFile(t, dir, "override.json", `{"greet": {"name": "json"}}`)

	t.Run("Files", func(t *testing.T) {
		b, _ := testApp("--config=" + override)
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddConfig(base)
		}).CreateRuntime()
		require.NoError(t, err)

		cfg, err := ConfigBean[greetConfig](rt, "greet")
		require.NoError(t, err)
		assert.Equal(t, greetConfig{Name: "json", Count: 1}, *cfg)
	})

	t.Run("Precedence", func(t *testing.T) {
		t.Setenv("GREET_COUNT", "5")
		external := config.NewProperties()
		external.Set("bq.greet.count", "7")

		b, _ := testApp("--config="+base, "--name", "cli")
		rt, err := b.Properties(external).ModuleFunc(func(b *Binder) {
			Extend(b).
				SetProperty("greet.name", "module").
				SetProperty("bq.greet.count", "2").
				DeclareVar("greet.count", "GREET_COUNT").
				AddOption(OptionMetadata{Name: "name", ValueName: "name", ConfigPath: "greet.name"})
		}).CreateRuntime()
		require.NoError(t, err)

		cfg, err := ConfigBean[greetConfig](rt, "greet")
		require.NoError(t, err)
		assert.Equal(t, "cli", cfg.Name)
		assert.Equal(t, 7, cfg.Count)
	})

	t.Run("DeclaredVarOverModuleProperty", func(t *testing.T) {
		t.Setenv("GREET_COUNT", "5")
		b, _ := testApp("--config=" + base)
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).
				SetProperty("greet.count", "2").
				DeclareVar("greet.count", "GREET_COUNT")
		}).CreateRuntime()
		require.NoError(t, err)

		cfg, err := ConfigBean[greetConfig](rt, "greet")
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Count)
	})

	t.Run("DeclaredVarDefaultName", func(t *testing.T) {
		t.Setenv("BQ_GREET_COUNT", "4")
		b, _ := testApp("--config=" + base)
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).DeclareVar("greet.count", "")
		}).CreateRuntime()
		require.NoError(t, err)

		cfg, err := ConfigBean[greetConfig](rt, "greet")
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Count)
	})

	t.Run("BooleanOption", func(t *testing.T) {
		type debugConfig struct {
			Debug bool `config:"debug"`
		}
		b, _ := testApp("--debug")
		rt, err := b.ModuleFunc(func(b *Binder) {
			Extend(b).AddOption(OptionMetadata{Name: "debug", ConfigPath: "app.debug"})
		}).CreateRuntime()
		require.NoError(t, err)

		cfg, err := ConfigBean[debugConfig](rt, "app")
		require.NoError(t, err)
		assert.True(t, cfg.Debug)
	})

	t.Run("MissingFile", func(t *testing.T) {
		b, _ := testApp("--config=" + filepath.Join(dir, "absent.yml"))
		rt, err := b.CreateRuntime()
		require.NoError(t, err)

		_, err = ConfigBean[greetConfig](rt, "greet")
		assert.ErrorIs(t, err, config.ErrConfigRead)
	})
}

// TestRuntimeShutdown tests hook ordering and idempotence
func TestRuntimeShutdown(t *testing.T) {
	var order []string
	b, _ := testApp()
	rt, err := b.ModuleFunc(func(b *Binder) {
		Extend(b).
			OnShutdown(func() error { order = append(order, "first"); return nil }).
			OnShutdown(func() error { order = append(order, "second"); return errors.New("second failed") })
		b.Provide(func(m *ShutdownManager) *englishGreeter {
			_ = m.Add(func() error { order = append(order, "provided"); return nil })
			return &englishGreeter{}
		})
	}).CreateRuntime()
	require.NoError(t, err)

	_, err = Instance[*englishGreeter](rt)
	require.NoError(t, err)

	err = rt.Shutdown()
	assert.EqualError(t, err, "second failed")
	assert.Equal(t, []string{"provided", "second", "first"}, order)

	assert.NoError(t, rt.Shutdown())
	assert.Len(t, order, 3)
}

// TestShutdownManager tests hooks added after shutdown and panicking hooks
func TestShutdownManager(t *testing.T) {
	m := newShutdownManager(NewBootLogger(&bytes.Buffer{}, &bytes.Buffer{}, false), nil)
	require.NoError(t, m.Add(func() error { panic("bad hook") }))

	err := m.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad hook")

	ran := false
	require.NoError(t, m.Add(func() error { ran = true; return nil }))
	assert.True(t, ran)
}
