package bootique

import (
	"errors"
	"fmt"
	"sync"
)

// ShutdownManager runs cleanup hooks once, most recent first. Constructors can
// take it as a dependency to register hooks for what they start.
type ShutdownManager struct {
	mu     sync.Mutex
	hooks  []func() error
	done   bool
	logger BootLogger
}

func newShutdownManager(logger BootLogger, hooks []func() error) *ShutdownManager {
	return &ShutdownManager{logger: logger, hooks: append([]func() error(nil), hooks...)}
}

// Add registers a hook. Hooks added after shutdown run immediately.
func (m *ShutdownManager) Add(fn func() error) error {
	m.mu.Lock()
	if !m.done {
		m.hooks = append(m.hooks, fn)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return fn()
}

// Shutdown runs every hook in reverse order and joins their errors.
// Subsequent calls do nothing.
func (m *ShutdownManager) Shutdown() error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	hooks := m.hooks
	m.hooks = nil
	m.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := runHook(hooks[i]); err != nil {
			m.logger.Trace(func() string { return fmt.Sprintf("shutdown hook failed: %v", err) })
			errs = append(errs, err)
		}
	}
	m.logger.Trace(func() string { return fmt.Sprintf("shutdown complete, %d hook(s) run", len(hooks)) })
	return errors.Join(errs...)
}

func runHook(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shutdown hook panicked: %v", r)
		}
	}()
	return fn()
}
