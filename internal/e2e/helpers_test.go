package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vllmpoc/internal/engine"
	"vllmpoc/internal/httpapi"
	"vllmpoc/internal/platform"
)

const testModel = "facebook/opt-125m"

// newStack serves the full HTTP API over a handle that starts empty.
func newStack(t *testing.T) (*httptest.Server, *engine.Handle) {
	t.Helper()
	h := &engine.Handle{}
	mux := httpapi.NewMux(httpapi.Options{
		Engines:  h,
		Model:    testModel,
		Platform: platform.Resolve(context.Background(), "linux", "amd64", nil),
		Logger:   zerolog.Nop(),
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = h.Release()
	})
	return srv, h
}

func openEngine(t *testing.T, kind engine.Kind, opts engine.Options) engine.Engine {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if opts.Args.Model == "" {
		opts.Args.Model = testModel
	}
	opts.Logger = zerolog.Nop()
	e, err := engine.Open(ctx, kind, opts)
	if err != nil {
		t.Fatalf("open %s: %v", kind, err)
	}
	return e
}

// fakeVLLM is an OpenAI-compatible server streaming a fixed completion.
type fakeVLLM struct {
	*httptest.Server
	chunks []string
	status int

	mu       sync.Mutex
	requests []map[string]any
}

func newFakeVLLM(t *testing.T, chunks ...string) *fakeVLLM {
	t.Helper()
	f := &fakeVLLM{chunks: chunks, status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"`+testModel+`","object":"model"}]}`)
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.requests = append(f.requests, body)
		status := f.status
		f.mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, `{"error":"CUDA out of memory"}`, status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		bw := bufio.NewWriter(w)
		for i, c := range f.chunks {
			finish := "null"
			if i == len(f.chunks)-1 {
				finish = `"stop"`
			}
			text, _ := json.Marshal(c)
			fmt.Fprintf(bw, "data: {\"id\":\"cmpl-1\",\"choices\":[{\"index\":0,\"text\":%s,\"finish_reason\":%s}]}\n\n", text, finish)
		}
		_, _ = bw.WriteString("data: [DONE]\n\n")
		_ = bw.Flush()
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeVLLM) setStatus(code int) {
	f.mu.Lock()
	f.status = code
	f.mu.Unlock()
}

func (f *fakeVLLM) lastRequest() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// jsonString escapes a string for embedding inside a JSON literal we build manually.
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
