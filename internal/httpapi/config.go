package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vllmpoc/internal/chat"
	"vllmpoc/internal/platform"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Options carry the dependencies and limits of the HTTP layer.
type Options struct {
	// Engines yields the loaded engine; nil means the model is not loaded.
	Engines chat.EngineSource
	// Chat completes requests; defaults to chat.NewService(Engines).
	Chat Completer
	// Model is the configured model name reported by /health and /models.
	Model    string
	Platform platform.Info
	Version  string

	// MaxBodyBytes limits JSON request bodies; zero means 1 MiB.
	MaxBodyBytes int64
	// GenerationTimeout bounds one chat completion; zero disables it.
	GenerationTimeout time.Duration
	// CORSOrigins lists allowed origins; empty disables the CORS middleware.
	CORSOrigins []string
	// BaseContext is canceled on shutdown and aborts in-flight generations.
	BaseContext context.Context

	Logger zerolog.Logger
	// LogLevel is the per-request log level unless a request overrides it.
	LogLevel LogLevel
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.GenerationTimeout < 0 {
		o.GenerationTimeout = 0
	}
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	if o.Chat == nil && o.Engines != nil {
		o.Chat = chat.NewService(o.Engines)
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	return o
}
