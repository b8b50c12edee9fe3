package bootique

import (
	"fmt"
	"sort"
	"sync"
)

// Module contributes bindings, commands and configuration to a runtime.
type Module interface {
	Configure(b *Binder)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(b *Binder)

// Configure calls f(b).
func (f ModuleFunc) Configure(b *Binder) { f(b) }

var (
	modulesMu sync.RWMutex
	modules   = make(map[string]Module)
)

// RegisterModule makes a module available to builders that call
// AutoLoadModules. It is meant to be called from a package init function and
// panics when name is registered twice or m is nil.
func RegisterModule(name string, m Module) {
	modulesMu.Lock()
	defer modulesMu.Unlock()

	if m == nil {
		panic("bootique: RegisterModule module is nil")
	}
	if _, exists := modules[name]; exists {
		panic(fmt.Sprintf("bootique: module with name '%s' already registered", name))
	}
	modules[name] = m
}

// RegisteredModules returns the names of auto-loadable modules, sorted.
func RegisteredModules() []string {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func autoLoadedModules() []Module {
	names := RegisteredModules()

	modulesMu.RLock()
	defer modulesMu.RUnlock()

	out := make([]Module, 0, len(names))
	for _, name := range names {
		if m, ok := modules[name]; ok {
			out = append(out, m)
		}
	}
	return out
}
