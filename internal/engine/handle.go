package engine

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type slot struct{ e Engine }

// Handle holds the process-wide engine. The zero value is empty and ready to use.
type Handle struct {
	p atomic.Pointer[slot]
}

// Get returns the current engine, or nil before Set or after Release.
func (h *Handle) Get() Engine {
	if s := h.p.Load(); s != nil {
		return s.e
	}
	return nil
}

// Set installs e, closing any engine it replaces.
func (h *Handle) Set(e Engine) {
	var next *slot
	if e != nil {
		next = &slot{e: e}
	}
	if prev := h.p.Swap(next); prev != nil && prev.e != e {
		_ = prev.e.Close()
	}
}

// Release empties the handle and closes the engine it held.
func (h *Handle) Release() error {
	if prev := h.p.Swap(nil); prev != nil {
		return prev.e.Close()
	}
	return nil
}

// replace swaps old for next only while old is still installed, then closes
// old. It reports whether the swap happened.
func (h *Handle) replace(old, next Engine) bool {
	cur := h.p.Load()
	if cur == nil || cur.e != old {
		return false
	}
	var ns *slot
	if next != nil {
		ns = &slot{e: next}
	}
	if !h.p.CompareAndSwap(cur, ns) {
		return false
	}
	_ = old.Close()
	return true
}

// Supervise blocks until ctx is done or p exits. When p exits while it is
// still installed, the stand-in takes its place if fallback is set and the
// handle is emptied otherwise.
func (h *Handle) Supervise(ctx context.Context, p *VLLMProcess, fallback bool, log zerolog.Logger) {
	select {
	case <-ctx.Done():
		return
	case <-p.Exited():
	}
	ev := log.Error().Err(p.waitErr).Int("pid", p.PID())
	if tail := p.stderr.String(); tail != "" {
		ev = ev.Str("stderr_tail", tail)
	}
	var next Engine
	if fallback {
		next = NewStandIn(p.Name())
	}
	if !h.replace(p, next) {
		return
	}
	if fallback {
		ev.Msg("vllm exited, using stand-in")
		return
	}
	ev.Msg("vllm exited, serving without a model")
}
