package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// VLLMServer talks to a running vLLM OpenAI-compatible server over HTTP,
// streaming /v1/completions and folding the deltas into cumulative outputs.
type VLLMServer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewVLLMServer constructs a client for the server at baseURL serving model.
func NewVLLMServer(baseURL, apiKey, model string, log zerolog.Logger) *VLLMServer {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// No client timeout: every request carries its deadline in the context.
	return &VLLMServer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Transport: tr},
		log:        log.With().Str("engine", "vllm_server").Logger(),
	}
}

func (s *VLLMServer) Name() string { return s.model }
func (s *VLLMServer) Mode() Mode   { return ModeReal }
func (s *VLLMServer) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// BaseURL returns the server root the client talks to.
func (s *VLLMServer) BaseURL() string { return s.baseURL }

// Ping reports whether GET /v1/models answers with a 2xx status.
func (s *VLLMServer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	s.authorize(req)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

func (s *VLLMServer) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

// completionRequest is the payload for /v1/completions.
type completionRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	Stream      bool    `json:"stream"`
}

// streamChoice accepts both completion (text) and chat (delta.content) chunks.
type streamChoice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// streamError is the error object vLLM sends mid-stream.
type streamError struct {
	Message string `json:"message"`
}

type streamChunk struct {
	ID      string         `json:"id"`
	Choices []streamChoice `json:"choices"`
	// Error events come as {"error":{...}} or, in older releases, as
	// {"object":"error","message":...}.
	Error   *streamError `json:"error"`
	Object  string       `json:"object"`
	Message string       `json:"message"`
}

// errorMessage returns the message of an error event, or "" for data chunks.
func (c streamChunk) errorMessage() string {
	switch {
	case c.Error != nil:
		if c.Error.Message == "" {
			return "unknown error"
		}
		return c.Error.Message
	case c.Object == "error":
		if c.Message == "" {
			return "unknown error"
		}
		return c.Message
	}
	return ""
}

// Generate posts the prompt and streams the response. Transport failures and
// non-2xx statuses are returned directly; failures after the stream started
// arrive as the last Result.
func (s *VLLMServer) Generate(ctx context.Context, prompt string, params SamplingParams, requestID string) (<-chan Result, error) {
	payload := completionRequest{
		Model:       s.model,
		Prompt:      prompt,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stream:      true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}
	s.authorize(req)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("vllm server: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
	}

	ch := make(chan Result)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		if err := s.readStream(ctx, resp.Body, requestID, ch); err != nil {
			send(ctx, ch, Result{Err: err})
		}
	}()
	return ch, nil
}

// readStream parses SSE "data:" lines until [DONE] or EOF.
func (s *VLLMServer) readStream(ctx context.Context, body io.Reader, requestID string, ch chan<- Result) error {
	r := bufio.NewReader(body)
	var (
		text   strings.Builder
		finish string
	)
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); l != "" && strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				return nil
			}
			var chunk streamChunk
			jerr := json.Unmarshal([]byte(data), &chunk)
			if msg := chunk.errorMessage(); jerr == nil && msg != "" {
				s.log.Warn().Str("error", msg).Msg("stream error event")
				return fmt.Errorf("vllm server: %s", msg)
			}
			if jerr != nil || len(chunk.Choices) == 0 {
				s.log.Debug().Str("line", l).Msg("unknown stream line")
			} else {
				c := chunk.Choices[0]
				frag := c.Text
				if frag == "" {
					frag = c.Delta.Content
				}
				text.WriteString(frag)
				if c.FinishReason != nil && *c.FinishReason != "" {
					finish = *c.FinishReason
				}
				out := RequestOutput{
					RequestID: requestID,
					Outputs:   []CompletionOutput{{Index: 0, Text: text.String(), FinishReason: finish}},
					Finished:  finish != "",
				}
				if !send(ctx, ch, Result{Output: out}) {
					return ctx.Err()
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("stream read error")
			return err
		}
	}
}
