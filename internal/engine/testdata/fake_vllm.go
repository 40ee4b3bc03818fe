package main

// fake_vllm mimics `vllm serve <model> --host H --port P ...` for process tests.
// FAKE_VLLM_EXIT=1 makes it fail before listening.

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func flagValue(args []string, name string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	args := os.Args[1:]
	if len(args) < 2 || args[0] != "serve" {
		fmt.Fprintln(os.Stderr, "usage: fake_vllm serve <model> --host H --port P")
		os.Exit(2)
	}
	model := args[1]
	if os.Getenv("FAKE_VLLM_EXIT") == "1" {
		fmt.Fprintln(os.Stderr, "RuntimeError: no CUDA GPUs are available")
		os.Exit(1)
	}
	host := flagValue(args, "--host")
	port := flagValue(args, "--port")

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"object":"list","data":[{"id":%q,"object":"model"}]}`, model)
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f, _ := w.(http.Flusher)
		for i, frag := range []string{"Hello", " from", " fake vllm"} {
			chunk := map[string]any{"id": "cmpl-1", "choices": []map[string]any{{"index": 0, "text": frag, "finish_reason": nil}}}
			if i == 2 {
				chunk["choices"].([]map[string]any)[0]["finish_reason"] = "stop"
			}
			b, _ := json.Marshal(chunk)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
			if f != nil {
				f.Flush()
			}
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	})

	srv := &http.Server{Addr: net.JoinHostPort(host, port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
