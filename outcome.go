package bootique

import (
	"fmt"
	"os"
)

// Outcome is the result of running a command.
type Outcome struct {
	code    int
	message string
	cause   error
}

// Succeeded returns a successful outcome.
func Succeeded() Outcome {
	return Outcome{}
}

// Failed returns an outcome with the given exit code and message.
func Failed(code int, message string) Outcome {
	return Outcome{code: code, message: message}
}

// FailedErr returns an outcome carrying err as its cause.
func FailedErr(code int, err error) Outcome {
	o := Outcome{code: code, cause: err}
	if err != nil {
		o.message = err.Error()
	}
	return o
}

func failedWith(code int, message string, cause error) Outcome {
	return Outcome{code: code, message: message, cause: cause}
}

// IsSuccess reports whether the exit code is zero.
func (o Outcome) IsSuccess() bool { return o.code == 0 }

// ExitCode returns the process exit code.
func (o Outcome) ExitCode() int { return o.code }

// Message returns the failure message, empty on success.
func (o Outcome) Message() string { return o.message }

// Cause returns the error behind a failure, if any.
func (o Outcome) Cause() error { return o.cause }

// Err returns nil on success and an *ExitError otherwise.
func (o Outcome) Err() error {
	if o.IsSuccess() {
		return nil
	}
	return &ExitError{Code: o.code, Message: o.message, Cause: o.cause}
}

func (o Outcome) String() string {
	if o.message == "" {
		return fmt.Sprintf("[%d]", o.code)
	}
	return fmt.Sprintf("[%d: %s]", o.code, o.message)
}

// Exit terminates the process with the outcome's exit code.
func (o Outcome) Exit() {
	os.Exit(o.code)
}

// ExitError carries a failed outcome through error returns.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Cause }
