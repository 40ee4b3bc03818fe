//go:build llama

package engine

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"
)

// llamaBuilt reports whether this binary links llama.cpp.
const llamaBuilt = true

// Llama runs a GGUF model in process through go-llama.cpp. The model is not
// safe for concurrent prediction, so generations are serialized.
type Llama struct {
	mu      sync.Mutex
	model   *llama.LLama
	name    string
	threads int
	log     zerolog.Logger
}

// OpenLlama loads the GGUF model named by opts.Args.Model, a file or a
// directory holding one.
func OpenLlama(_ context.Context, opts Options) (*Llama, error) {
	path, err := ResolveGGUF(opts.Args.Model)
	if err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{}
	if opts.Args.MaxModelLen > 0 {
		mo = append(mo, llama.SetContext(opts.Args.MaxModelLen))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, fmt.Errorf("llama: load %s: %w", path, err)
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &Llama{model: m, name: path, threads: threads, log: opts.Logger.With().Str("engine", "llama").Logger()}, nil
}

func (l *Llama) Name() string { return l.name }
func (l *Llama) Mode() Mode   { return ModeReal }

func (l *Llama) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil {
		l.model.Free()
		l.model = nil
	}
	return nil
}

func (l *Llama) Generate(ctx context.Context, prompt string, params SamplingParams, requestID string) (<-chan Result, error) {
	ch := make(chan Result)
	go func() {
		defer close(ch)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.model == nil {
			send(ctx, ch, Result{Err: fmt.Errorf("%w: llama model closed", ErrUnavailable)})
			return
		}

		var text strings.Builder
		l.model.SetTokenCallback(func(tok string) bool {
			text.WriteString(tok)
			out := RequestOutput{RequestID: requestID, Outputs: []CompletionOutput{{Text: text.String()}}}
			return send(ctx, ch, Result{Output: out})
		})
		defer l.model.SetTokenCallback(nil)

		final, err := l.model.Predict(prompt, predictOptions(params, l.threads)...)
		if err != nil {
			if ctx.Err() == nil {
				send(ctx, ch, Result{Err: err})
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		send(ctx, ch, Result{Output: RequestOutput{
			RequestID: requestID,
			Outputs:   []CompletionOutput{{Text: final, FinishReason: "stop"}},
			Finished:  true,
		}})
	}()
	return ch, nil
}

func predictOptions(p SamplingParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetThreads(max(1, threads)),
		llama.SetTemperature(float32(p.Temperature)),
	}
	if p.MaxTokens > 0 {
		po = append(po, llama.SetTokens(p.MaxTokens))
	}
	if p.TopP > 0 {
		po = append(po, llama.SetTopP(float32(p.TopP)))
	}
	return po
}
