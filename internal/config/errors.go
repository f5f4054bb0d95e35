package config

import (
	"errors"
	"fmt"
)

// Error reports a configuration source or value that cannot be used.
// Startup treats it as fatal.
type Error struct {
	// Source is set when a whole file could not be read or parsed.
	Source string
	// Field and Value are set when a single setting is malformed.
	Field string
	Value string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: invalid %s=%q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsInvalid reports whether err is a configuration error.
func IsInvalid(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
