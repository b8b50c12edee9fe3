package bootique

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// BootLogger is the framework's own output channel. Stdout and Stderr write
// whole lines to the two process streams; Trace carries lazily built
// diagnostics that are dropped unless tracing is on.
type BootLogger interface {
	Trace(msg func() string)
	Stdout(msg string)
	Stderr(msg string)
}

// DefaultBootLogger writes to two sinks and renders trace messages with
// charmbracelet/log on the stderr sink.
type DefaultBootLogger struct {
	stdout io.Writer
	stderr io.Writer
	tracer *log.Logger // nil when tracing is off
}

// NewBootLogger returns a logger over the given sinks.
func NewBootLogger(stdout, stderr io.Writer, trace bool) *DefaultBootLogger {
	l := &DefaultBootLogger{stdout: stdout, stderr: stderr}
	if trace {
		l.tracer = log.NewWithOptions(stderr, log.Options{
			Level:  log.DebugLevel,
			Prefix: "bootique",
		})
	}
	return l
}

// NewSystemBootLogger returns a logger over os.Stdout and os.Stderr.
func NewSystemBootLogger(trace bool) *DefaultBootLogger {
	return NewBootLogger(os.Stdout, os.Stderr, trace)
}

// Trace renders msg at debug level when tracing is on.
func (l *DefaultBootLogger) Trace(msg func() string) {
	if l.tracer == nil || msg == nil {
		return
	}
	l.tracer.Debug(msg())
}

// Stdout writes msg and a newline to the stdout sink.
func (l *DefaultBootLogger) Stdout(msg string) {
	l.write(l.stdout, "stdout", msg)
}

// Stderr writes msg and a newline to the stderr sink.
func (l *DefaultBootLogger) Stderr(msg string) {
	l.write(l.stderr, "stderr", msg)
}

func (l *DefaultBootLogger) write(w io.Writer, sink, msg string) {
	if _, err := io.WriteString(w, msg+"\n"); err != nil {
		l.Trace(func() string {
			return fmt.Sprintf("dropped %s message: %v", sink, err)
		})
	}
}
