package bqtest

import (
	"bytes"
	"sync"

	"github.com/aarrsseni/bootique"
)

// SafeBuffer collects writes from commands that may log from several
// goroutines. The zero value is ready to use.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestIO captures what a runtime writes to stdout and stderr.
type TestIO struct {
	stdout SafeBuffer
	stderr SafeBuffer
	logger bootique.BootLogger
}

// NewTestIO returns a TestIO whose logger also writes trace messages to stderr.
func NewTestIO() *TestIO {
	return newTestIO(true)
}

// NoTrace returns a TestIO that keeps only user-level messages.
func NoTrace() *TestIO {
	return newTestIO(false)
}

func newTestIO(trace bool) *TestIO {
	io := &TestIO{}
	io.logger = bootique.NewBootLogger(&io.stdout, &io.stderr, trace)
	return io
}

// BootLogger returns the logger to pass to AppBuilder.BootLogger.
func (io *TestIO) BootLogger() bootique.BootLogger {
	return io.logger
}

// Stdout returns everything written to stdout so far.
func (io *TestIO) Stdout() string {
	return io.stdout.String()
}

// Stderr returns everything written to stderr so far.
func (io *TestIO) Stderr() string {
	return io.stderr.String()
}
