package engine

import (
	"context"
	"fmt"
)

// LlamaBuilt reports whether this binary was compiled with llama.cpp support.
func LlamaBuilt() bool { return llamaBuilt }

// Open builds the engine selected by kind. It blocks until the model is
// loaded or the backend is reachable, bounded by opts.StartupTimeout.
func Open(ctx context.Context, kind Kind, opts Options) (Engine, error) {
	opts = opts.withDefaults()
	switch kind {
	case KindStandIn:
		return NewStandIn(opts.Args.Model), nil
	case KindVLLM:
		p, err := StartVLLMProcess(ctx, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindVLLMServer:
		if opts.URL == "" {
			return nil, fmt.Errorf("%w: vllm-server engine needs a server URL", ErrUnavailable)
		}
		s := NewVLLMServer(opts.URL, opts.APIKey, opts.Args.Model, opts.Logger)
		readyCtx, cancel := context.WithTimeout(ctx, opts.StartupTimeout)
		defer cancel()
		if err := waitReady(readyCtx, s, nil); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("vllm server %s not reachable: %w", opts.URL, err)
		}
		return s, nil
	case KindLlama:
		l, err := OpenLlama(ctx, opts)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown engine kind %q", kind)
	}
}

// OpenWithFallback is Open, except that when fallback is set a failing real
// engine is replaced by the stand-in. The init error is returned alongside
// the stand-in so callers can log it.
func OpenWithFallback(ctx context.Context, kind Kind, opts Options, fallback bool) (Engine, error) {
	e, err := Open(ctx, kind, opts)
	if err == nil {
		return e, nil
	}
	if !fallback || ctx.Err() != nil {
		return nil, err
	}
	opts.Logger.Warn().Err(err).Str("engine", string(kind)).Msg("engine init failed, using stand-in")
	return NewStandIn(opts.Args.Model), err
}
