package bqtest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aarrsseni/bootique"
	"github.com/aarrsseni/bootique/config"
)

// Harness creates runtimes for one test and shuts them down when the test ends.
type Harness struct {
	tb       testing.TB
	mu       sync.Mutex
	runtimes []*bootique.Runtime
}

// New returns a harness scoped to tb.
func New(tb testing.TB) *Harness {
	h := &Harness{tb: tb}
	tb.Cleanup(h.shutdown)
	return h
}

// App starts a builder for args. Unlike bootique.App, the runtime does not see
// config.System or BQ_ environment variables unless the test asks for them.
func (h *Harness) App(args ...string) *AppBuilder {
	return &AppBuilder{
		h: h,
		b: bootique.App(args...).Properties(config.NewProperties()),
	}
}

func (h *Harness) track(rt *bootique.Runtime) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runtimes = append(h.runtimes, rt)
}

// shutdown stops runtimes, most recent first.
func (h *Harness) shutdown() {
	h.mu.Lock()
	runtimes := h.runtimes
	h.runtimes = nil
	h.mu.Unlock()

	for i := len(runtimes) - 1; i >= 0; i-- {
		if err := runtimes[i].Shutdown(); err != nil {
			h.tb.Errorf("shutdown runtime %v: %v", runtimes[i].Args(), err)
		}
	}
}

// AppBuilder configures one runtime of a harness. Changing it after the
// runtime was created fails the test with bootique.ErrBuilderClosed.
type AppBuilder struct {
	h     *Harness
	b     *bootique.Builder
	built bool
}

func (a *AppBuilder) mutate(fn func()) *AppBuilder {
	a.h.tb.Helper()
	fn()
	if a.built {
		a.h.tb.Errorf("%v", a.b.Err())
	}
	return a
}

// AutoLoadModules includes every module added with bootique.RegisterModule.
func (a *AppBuilder) AutoLoadModules() *AppBuilder {
	a.h.tb.Helper()
	return a.mutate(func() { a.b.AutoLoadModules() })
}

// Module adds modules.
func (a *AppBuilder) Module(modules ...bootique.Module) *AppBuilder {
	a.h.tb.Helper()
	return a.mutate(func() { a.b.Module(modules...) })
}

// ModuleFunc adds a function module.
func (a *AppBuilder) ModuleFunc(fn func(*bootique.Binder)) *AppBuilder {
	a.h.tb.Helper()
	return a.mutate(func() { a.b.ModuleFunc(fn) })
}

// BootLogger sets the runtime logger, typically TestIO.BootLogger().
func (a *AppBuilder) BootLogger(logger bootique.BootLogger) *AppBuilder {
	a.h.tb.Helper()
	return a.mutate(func() { a.b.BootLogger(logger) })
}

// Properties sets the external property store.
func (a *AppBuilder) Properties(props config.Properties) *AppBuilder {
	a.h.tb.Helper()
	return a.mutate(func() { a.b.Properties(props) })
}

// InheritSystemProperties overlays config.System, as a production runtime would.
func (a *AppBuilder) InheritSystemProperties() *AppBuilder {
	a.h.tb.Helper()
	return a.mutate(func() { a.b.Properties(config.System) })
}

// Err returns the first misuse recorded on the builder.
func (a *AppBuilder) Err() error {
	return a.b.Err()
}

// CreateRuntime builds the runtime and fails the test on error.
func (a *AppBuilder) CreateRuntime() *bootique.Runtime {
	a.h.tb.Helper()
	rt, err := a.TryCreateRuntime()
	require.NoError(a.h.tb, err)
	return rt
}

// TryCreateRuntime builds the runtime and returns any error.
func (a *AppBuilder) TryCreateRuntime() (*bootique.Runtime, error) {
	a.built = true
	rt, err := a.b.CreateRuntime()
	if err != nil {
		return nil, err
	}
	a.h.track(rt)
	return rt, nil
}
