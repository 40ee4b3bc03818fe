// Package engine defines the contract between the chat service and the
// inference backend, plus the concrete backends: a vLLM server client, a
// spawned vLLM process, an in-process llama.cpp model (build tag llama) and a
// stand-in that answers with a fixed text.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vllmpoc/internal/platform"
)

// Mode distinguishes a real backend from the stand-in.
type Mode string

const (
	ModeReal    Mode = "real"
	ModeStandIn Mode = "standin"
)

// SamplingParams are the per-request generation knobs.
type SamplingParams struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// CompletionOutput is one candidate of a RequestOutput.
type CompletionOutput struct {
	Index        int
	Text         string
	FinishReason string
}

// RequestOutput is a snapshot of a generation. Outputs are cumulative: every
// snapshot carries the full text generated so far. Finished is set on the
// last snapshot of a completed generation.
type RequestOutput struct {
	RequestID string
	Outputs   []CompletionOutput
	Finished  bool
}

// Result is one element of a generation stream.
type Result struct {
	Output RequestOutput
	Err    error
}

// Engine produces completions for prompts.
type Engine interface {
	// Generate starts a generation and returns its stream. The channel is
	// closed when the stream ends; an element with a non-nil Err is always
	// the last one. Implementations stop producing when ctx is canceled.
	Generate(ctx context.Context, prompt string, params SamplingParams, requestID string) (<-chan Result, error)
	// Name is the model identifier served by the engine.
	Name() string
	Mode() Mode
	Close() error
}

// Kind selects the backend built by Open.
type Kind string

const (
	KindVLLM       Kind = "vllm"
	KindVLLMServer Kind = "vllm-server"
	KindLlama      Kind = "llama"
	KindStandIn    Kind = "standin"
)

// Kinds lists the accepted values of Kind.
var Kinds = []Kind{KindVLLM, KindVLLMServer, KindLlama, KindStandIn}

// ParseKind validates s as a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown engine %q (want one of vllm, vllm-server, llama, standin)", s)
}

// Options configure Open.
type Options struct {
	// Args are the platform-derived engine arguments; Args.Model names the model.
	Args platform.Args
	// Bin is the vllm executable used by KindVLLM.
	Bin string
	// Host is the interface a spawned vllm binds to.
	Host string
	// URL is the base URL of an already running vLLM server (KindVLLMServer).
	URL    string
	APIKey string
	// StartupTimeout bounds model loading and server readiness.
	StartupTimeout time.Duration
	// Threads is the llama.cpp thread count; zero picks a default.
	Threads int
	Logger  zerolog.Logger
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Bin) == "" {
		o.Bin = "vllm"
	}
	if strings.TrimSpace(o.Host) == "" {
		o.Host = "127.0.0.1"
	}
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = 10 * time.Minute
	}
	return o
}

// send delivers r unless ctx is done first.
func send(ctx context.Context, ch chan<- Result, r Result) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
