// Package chat turns chat completion requests into engine generations and
// shapes the engine output into chat completion responses.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vllmpoc/internal/engine"
	"vllmpoc/pkg/types"
)

// Sampling defaults applied when a request leaves a field zero or unset.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

// EngineSource yields the current engine, or nil when none is loaded.
// *engine.Handle implements it.
type EngineSource interface {
	Get() engine.Engine
}

// Service completes chat requests against the engine held by its source.
type Service struct {
	engines EngineSource
	newID   func() string
	now     func() time.Time
}

// NewService returns a Service reading the engine from src on every call.
func NewService(src EngineSource) *Service {
	return &Service{
		engines: src,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Params resolves the request's sampling parameters against the defaults.
func Params(req types.ChatRequest) engine.SamplingParams {
	p := engine.SamplingParams{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = DefaultTemperature
	}
	if p.TopP == 0 {
		p.TopP = DefaultTopP
	}
	return p
}

// Complete runs one chat completion. The request must already be validated.
func (s *Service) Complete(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	eng := s.engines.Get()
	if eng == nil {
		return types.ChatResponse{}, ErrEngineUnavailable
	}
	log := zerolog.Ctx(ctx)
	prompt := BuildPrompt(req.Messages)
	params := Params(req)
	requestID := s.newID()
	log.Debug().Str("request_id", requestID).Str("prompt", prompt).
		Int("max_tokens", params.MaxTokens).Float64("temperature", params.Temperature).Float64("top_p", params.TopP).
		Msg("generate")

	stream, err := eng.Generate(ctx, prompt, params, requestID)
	if err != nil {
		if errors.Is(err, engine.ErrUnavailable) {
			return types.ChatResponse{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return types.ChatResponse{}, &GenerationError{Err: err}
	}

	var (
		last engine.RequestOutput
		seen bool
	)
	for r := range stream {
		if r.Err != nil {
			return types.ChatResponse{}, &GenerationError{Err: r.Err}
		}
		last, seen = r.Output, true
	}
	if err := ctx.Err(); err != nil {
		return types.ChatResponse{}, &GenerationError{Err: err}
	}
	if !seen || len(last.Outputs) == 0 {
		return types.ChatResponse{}, &GenerationError{Err: ErrNoOutput}
	}
	if !last.Finished {
		return types.ChatResponse{}, &GenerationError{Err: ErrIncomplete}
	}

	out := last.Outputs[0]
	finish := out.FinishReason
	if finish == "" {
		finish = "stop"
	}
	promptTokens := CountTokens(prompt)
	completionTokens := CountTokens(out.Text)
	log.Debug().Str("request_id", requestID).Str("completion", out.Text).Str("finish_reason", finish).Msg("generated")

	return types.ChatResponse{
		ID:      "chat-" + requestID,
		Object:  "chat.completion",
		Created: s.now().Unix(),
		Model:   eng.Name(),
		Choices: []types.ChatChoice{{
			Index:        0,
			Message:      types.ChatMessage{Role: types.RoleAssistant, Content: strings.TrimSpace(out.Text)},
			FinishReason: finish,
		}},
		Usage: types.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}
