package engine

import (
	"errors"
	"fmt"
)

// ErrUnavailable reports that a backend cannot be used in this build or on
// this host, such as llama.cpp support compiled out or a missing vllm binary.
var ErrUnavailable = errors.New("engine unavailable")

// StatusError is returned when a vLLM server answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
	// Body is a bounded excerpt of the response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("vllm server http error: %s", e.Status)
	}
	return fmt.Sprintf("vllm server http error: %s: %s", e.Status, e.Body)
}

// IsUnavailable reports whether err wraps ErrUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
