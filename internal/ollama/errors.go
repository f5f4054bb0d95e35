package ollama

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call.
type Kind int

const (
	// KindUnavailable covers refused connections, transport errors and non-2xx replies.
	KindUnavailable Kind = iota
	// KindTimeout means the configured backend timeout elapsed.
	KindTimeout
	// KindMalformed means the backend answered with a payload missing expected fields.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed response"
	default:
		return "unavailable"
	}
}

// Error is returned by every Client call that fails.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ollama %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) (Kind, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind, true
	}
	return 0, false
}

// IsUnavailable reports whether err means the backend could not be reached or
// did not answer in time. Timeouts count as unavailable.
func IsUnavailable(err error) bool {
	k, ok := kindOf(err)
	return ok && (k == KindUnavailable || k == KindTimeout)
}

// IsTimeout reports whether err was caused by the backend timeout.
func IsTimeout(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTimeout
}

// IsMalformed reports whether the backend returned an unexpected payload.
func IsMalformed(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindMalformed
}
