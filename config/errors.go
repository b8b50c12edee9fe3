package config

import "errors"

var (
	// ErrConfigRead is returned when a configuration document is missing, unreadable or malformed.
	ErrConfigRead = errors.New("config read error")
	// ErrTypeMismatch is returned when the tree shape does not fit the target attribute type.
	ErrTypeMismatch = errors.New("config type mismatch")
	// ErrUnknownKey is returned for a tree key with no matching attribute on a strict bean.
	ErrUnknownKey = errors.New("unknown config key")
)
