//go:build !llama

package engine

import (
	"context"
	"fmt"
)

// llamaBuilt reports whether this binary links llama.cpp.
const llamaBuilt = false

var errLlamaNotBuilt = fmt.Errorf("%w: llama support not built (missing 'llama' build tag)", ErrUnavailable)

// Llama satisfies Engine but refuses to run without the llama build tag.
type Llama struct{}

// OpenLlama fails fast: llama.cpp support is not compiled in.
func OpenLlama(context.Context, Options) (*Llama, error) {
	return nil, errLlamaNotBuilt
}

func (l *Llama) Generate(ctx context.Context, _ string, _ SamplingParams, _ string) (<-chan Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errLlamaNotBuilt
}

func (l *Llama) Name() string { return "" }
func (l *Llama) Mode() Mode   { return ModeReal }
func (l *Llama) Close() error { return nil }
