package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"vllmpoc/internal/engine"
	"vllmpoc/internal/platform"
	"vllmpoc/pkg/types"
)

const helloChat = `{"messages":[{"role":"user","content":"Hello"}]}`

func decodeChat(t *testing.T, body []byte) types.ChatResponse {
	t.Helper()
	var out types.ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("chat json: %v body=%s", err, string(body))
	}
	return out
}

// TestE2E_LoadingThenReady follows the startup window: the server answers
// before the engine is set and reports 503 until then.
func TestE2E_LoadingThenReady(t *testing.T) {
	srv, h := newStack(t)

	resp, body := httpGet(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/health before load %d %s", resp.StatusCode, string(body))
	}
	resp, body = httpPostJSON(t, srv.URL+"/v1/chat/completions", []byte(helloChat))
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), "Model not loaded") {
		t.Fatalf("chat before load %d %s", resp.StatusCode, string(body))
	}
	// Models are listed from configuration, loaded or not.
	resp, body = httpGet(t, srv.URL+"/v1/models")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), testModel) {
		t.Fatalf("/v1/models %d %s", resp.StatusCode, string(body))
	}

	h.Set(openEngine(t, engine.KindStandIn, engine.Options{}))

	resp, body = httpGet(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health after load %d %s", resp.StatusCode, string(body))
	}
	var health types.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("health json: %v", err)
	}
	if health.Status != "demo_mode" || health.Model != testModel || health.GPUMemoryUsed != "CPU only" {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestE2E_StandInChat(t *testing.T) {
	srv, h := newStack(t)
	h.Set(openEngine(t, engine.KindStandIn, engine.Options{}))

	resp, body := httpPostJSON(t, srv.URL+"/v1/chat/completions", []byte(`{"messages":[
		{"role":"system","content":"be brief"},
		{"role":"user","content":"Hello"},
		{"role":"assistant","content":"Hi"},
		{"role":"user","content":"Tell me a joke"}]}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat %d %s", resp.StatusCode, string(body))
	}
	out := decodeChat(t, body)
	if got := out.Choices[0].Message.Content; got != engine.StandInText {
		t.Fatalf("content=%q", got)
	}
	// "User: Hello\nAssistant: Hi\nUser: Tell me a joke\nAssistant:" has 10 words.
	want := types.Usage{PromptTokens: 10, CompletionTokens: 12, TotalTokens: 22}
	if out.Usage != want {
		t.Fatalf("usage=%+v want %+v", out.Usage, want)
	}
}

// TestE2E_VLLMServer drives the chat endpoint through the streaming vLLM
// client against an OpenAI-compatible fake.
func TestE2E_VLLMServer(t *testing.T) {
	fake := newFakeVLLM(t, " Paris", " is the", " capital. ")
	srv, h := newStack(t)
	h.Set(openEngine(t, engine.KindVLLMServer, engine.Options{URL: fake.URL}))

	resp, body := httpPostJSON(t, srv.URL+"/v1/chat/completions", []byte(`{"messages":[{"role":"user","content":"Capital of France?"}],"max_tokens":32,"temperature":0.2}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat %d %s", resp.StatusCode, string(body))
	}
	out := decodeChat(t, body)
	if got := out.Choices[0].Message.Content; got != "Paris is the capital." {
		t.Fatalf("content=%q", got)
	}
	if out.Choices[0].FinishReason != "stop" || out.Model != testModel {
		t.Fatalf("unexpected response: %+v", out)
	}
	if out.Usage.CompletionTokens != 4 || out.Usage.TotalTokens != out.Usage.PromptTokens+4 {
		t.Fatalf("usage=%+v", out.Usage)
	}

	req := fake.lastRequest()
	if req["prompt"] != "User: Capital of France?\nAssistant:" {
		t.Fatalf("prompt=%q", req["prompt"])
	}
	// JSON numbers decode as float64; top_p was omitted and takes the default.
	if req["max_tokens"] != 32.0 || req["temperature"] != 0.2 || req["top_p"] != 0.9 || req["stream"] != true {
		t.Fatalf("sampling=%v", req)
	}
}

func TestE2E_UpstreamErrorMaps500(t *testing.T) {
	fake := newFakeVLLM(t, "unused")
	srv, h := newStack(t)
	h.Set(openEngine(t, engine.KindVLLMServer, engine.Options{URL: fake.URL}))
	fake.setStatus(http.StatusInternalServerError)

	resp, body := httpPostJSON(t, srv.URL+"/v1/chat/completions", []byte(helloChat))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d %s", resp.StatusCode, string(body))
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("error json: %v", err)
	}
	if !strings.HasPrefix(e.Detail, "Generation failed: ") || !strings.Contains(e.Detail, "CUDA out of memory") {
		t.Fatalf("detail=%q", e.Detail)
	}
}

func TestE2E_SchemaViolationSkipsEngine(t *testing.T) {
	fake := newFakeVLLM(t, "unused")
	srv, h := newStack(t)
	h.Set(openEngine(t, engine.KindVLLMServer, engine.Options{URL: fake.URL}))

	for _, payload := range []string{`{}`, `{"messages":"hi"}`, `{"messages":[{"role":"bot","content":"x"}]}`} {
		resp, body := httpPostJSON(t, srv.URL+"/v1/chat/completions", []byte(payload))
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d %s", payload, resp.StatusCode, string(body))
		}
	}
	if req := fake.lastRequest(); req != nil {
		t.Fatalf("engine saw a request: %v", req)
	}
}

// TestE2E_FallbackToStandIn starts the vllm engine with a binary that does
// not exist; the stand-in takes over and the init error is still reported.
func TestE2E_FallbackToStandIn(t *testing.T) {
	srv, h := newStack(t)
	e, err := engine.OpenWithFallback(context.Background(), engine.KindVLLM, engine.Options{
		Args:   platform.Args{Model: testModel},
		Bin:    "vllm-binary-that-does-not-exist",
		Logger: zerolog.Nop(),
	}, true)
	if err == nil || !engine.IsUnavailable(err) {
		t.Fatalf("expected unavailable init error, got %v", err)
	}
	if e == nil || e.Mode() != engine.ModeStandIn {
		t.Fatalf("expected stand-in, got %v", e)
	}
	h.Set(e)

	resp, body := httpGet(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "demo_mode") {
		t.Fatalf("/health %d %s", resp.StatusCode, string(body))
	}
	resp, body = httpPostJSON(t, srv.URL+"/v1/chat/completions", []byte(helloChat))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Demo response") {
		t.Fatalf("chat %d %s", resp.StatusCode, string(body))
	}
}
