package chat

import "errors"

var (
	// ErrEngineUnavailable means no engine is loaded (startup in progress or failed).
	ErrEngineUnavailable = errors.New("model not loaded")
	// ErrNoOutput means the engine stream closed without producing anything.
	ErrNoOutput = errors.New("engine produced no output")
	// ErrIncomplete means the stream closed before a finished output arrived.
	ErrIncomplete = errors.New("generation ended before completion")
)

// GenerationError wraps any failure that happens after the engine accepted
// the request.
type GenerationError struct{ Err error }

func (e *GenerationError) Error() string { return e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }
