package types

import (
	"encoding/json"
	"errors"
)

// Chat roles accepted by the chat completions endpoint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is a single conversation turn.
type ChatMessage struct {
	// Author of the message: user, assistant or system.
	// example: user
	Role string `json:"role" validate:"required,oneof=user assistant system" example:"user"`
	// Message text. May be empty but must be present.
	// example: Hello
	Content string `json:"content" example:"Hello"`
}

// UnmarshalJSON rejects messages that do not carry both a role and a content
// string, so a malformed message is a schema violation rather than a zero value.
func (m *ChatMessage) UnmarshalJSON(b []byte) error {
	var wire struct {
		Role    *string `json:"role"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	if wire.Role == nil {
		return errors.New("message.role is required")
	}
	if wire.Content == nil {
		return errors.New("message.content is required")
	}
	m.Role = *wire.Role
	m.Content = *wire.Content
	return nil
}

// ChatRequest is the body of POST /v1/chat/completions.
type ChatRequest struct {
	// Optional model identifier; the server serves a single configured model and ignores it.
	// example: microsoft/DialoGPT-small
	Model string `json:"model,omitempty" example:"microsoft/DialoGPT-small"`
	// Conversation so far, oldest first.
	Messages []ChatMessage `json:"messages" validate:"required,dive"`
	// Maximum number of new tokens to generate. 0 or omitted uses 512.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" validate:"gte=0" example:"128"`
	// Sampling temperature. 0 or omitted uses 0.7.
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" validate:"gte=0" example:"0.7"`
	// Nucleus sampling probability. 0 or omitted uses 0.9.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" validate:"gte=0,lte=1" example:"0.9"`
}

// ChatChoice is one generated alternative. The server always returns exactly one.
type ChatChoice struct {
	// example: 0
	Index   int         `json:"index" example:"0"`
	Message ChatMessage `json:"message"`
	// example: stop
	FinishReason string `json:"finish_reason" example:"stop"`
}

// Usage reports whitespace-delimited word counts, not model tokens.
type Usage struct {
	// example: 3
	PromptTokens int `json:"prompt_tokens" example:"3"`
	// example: 12
	CompletionTokens int `json:"completion_tokens" example:"12"`
	// example: 15
	TotalTokens int `json:"total_tokens" example:"15"`
}

// ChatResponse is returned by POST /v1/chat/completions.
type ChatResponse struct {
	// example: chat-5b7c0a52-2f6c-4a3e-9d55-3f1f1b0f8e11
	ID string `json:"id" example:"chat-5b7c0a52-2f6c-4a3e-9d55-3f1f1b0f8e11"`
	// example: chat.completion
	Object string `json:"object" example:"chat.completion"`
	// Unix seconds.
	// example: 1700000000
	Created int64 `json:"created" example:"1700000000"`
	// example: microsoft/DialoGPT-small
	Model   string       `json:"model" example:"microsoft/DialoGPT-small"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// healthy when a real engine serves requests, demo_mode for the stand-in.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: microsoft/DialoGPT-small
	Model string `json:"model" example:"microsoft/DialoGPT-small"`
	// Accelerator summary for the platform.
	// example: CUDA enabled
	GPUMemoryUsed string `json:"gpu_memory_used,omitempty" example:"CUDA enabled"`
}

// ModelCard describes the served model in GET /models.
type ModelCard struct {
	// example: microsoft/DialoGPT-small
	ID string `json:"id" example:"microsoft/DialoGPT-small"`
	// example: model
	Object string `json:"object" example:"model"`
	// example: 1677610602
	Created int64 `json:"created" example:"1677610602"`
	// example: vllm-poc
	OwnedBy string `json:"owned_by" example:"vllm-poc"`
}

// ModelsResponse wraps the model listing.
type ModelsResponse struct {
	// example: list
	Object string      `json:"object" example:"list"`
	Data   []ModelCard `json:"data"`
}

// InfoResponse is returned by GET /.
type InfoResponse struct {
	// example: vLLM POC Server
	Message string `json:"message" example:"vLLM POC Server"`
	// example: 1.0.0
	Version string `json:"version" example:"1.0.0"`
	// example: Linux
	Platform string `json:"platform" example:"Linux"`
	// example: cuda
	Backend   string            `json:"backend" example:"cuda"`
	Endpoints map[string]string `json:"endpoints"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Model not loaded
	Detail string `json:"detail" example:"Model not loaded"`
}
