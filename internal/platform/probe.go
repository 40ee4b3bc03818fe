package platform

import (
	"context"
	"os/exec"
	"sync"
	"time"
)

// DefaultProbeTimeout bounds a single nvidia-smi invocation.
const DefaultProbeTimeout = 10 * time.Second

// ProbeFunc reports whether a CUDA device is usable.
type ProbeFunc func(ctx context.Context) bool

// CommandProbe returns a probe that runs name with args and reports success
// only when the command exits zero within timeout. A missing binary, a
// timeout or any non-zero exit all mean "unavailable". There are no retries.
func CommandProbe(timeout time.Duration, name string, args ...string) ProbeFunc {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		cmd := exec.CommandContext(ctx, name, args...)
		// Output is discarded; only the exit status matters.
		cmd.WaitDelay = time.Second
		return cmd.Run() == nil
	}
}

// NvidiaSMIProbe is the CUDA probe used in production.
func NvidiaSMIProbe(timeout time.Duration) ProbeFunc {
	return CommandProbe(timeout, "nvidia-smi")
}

// Once wraps p so it runs at most once; later calls return the cached result.
func Once(p ProbeFunc) ProbeFunc {
	var (
		once sync.Once
		ok   bool
	)
	return func(ctx context.Context) bool {
		once.Do(func() { ok = p(ctx) })
		return ok
	}
}
