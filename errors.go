package bootique

import "errors"

var (
	// ErrNoBinding is returned when a requested type was never bound by any module.
	ErrNoBinding = errors.New("no binding")
	// ErrDuplicateCommand is returned when two commands share a name.
	ErrDuplicateCommand = errors.New("duplicate command")
	// ErrBuilderClosed is returned when a builder is used after its runtime was created.
	ErrBuilderClosed = errors.New("builder closed")
	// ErrNoCommand is returned when the arguments select no command and there is no default.
	ErrNoCommand = errors.New("no command")
	// ErrAmbiguousCommand is returned when the arguments select more than one command.
	ErrAmbiguousCommand = errors.New("ambiguous command")
)
