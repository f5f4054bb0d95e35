package relay

import "errors"

// GenerationError wraps any failure raised while producing text, whether
// from the backend, a malformed reply or a timeout. Its message is the
// underlying cause's message.
type GenerationError struct{ Err error }

func (e *GenerationError) Error() string { return e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationFailed reports whether err came from Generate or GenerateStream.
func IsGenerationFailed(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
