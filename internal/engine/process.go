package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// stopGrace is how long Close waits after SIGTERM before killing.
const stopGrace = 5 * time.Second

// VLLMProcess owns a `vllm serve` child process and serves generations
// through a VLLMServer client bound to it.
type VLLMProcess struct {
	*VLLMServer

	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error
	stderr  *tailBuffer
	log     zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// StartVLLMProcess spawns vllm on a free port and waits until it answers
// GET /v1/models, the process exits, or opts.StartupTimeout passes.
func StartVLLMProcess(ctx context.Context, opts Options) (*VLLMProcess, error) {
	opts = opts.withDefaults()
	if strings.TrimSpace(opts.Args.Model) == "" {
		return nil, errors.New("vllm: model is empty")
	}
	bin, err := exec.LookPath(opts.Bin)
	if err != nil {
		return nil, fmt.Errorf("%w: vllm binary %q not found: %v", ErrUnavailable, opts.Bin, err)
	}
	port, err := pickFreePort(opts.Host)
	if err != nil {
		return nil, err
	}
	baseURL := "http://" + net.JoinHostPort(opts.Host, strconv.Itoa(port))

	args := []string{"serve", opts.Args.Model, "--host", opts.Host, "--port", strconv.Itoa(port)}
	args = append(args, opts.Args.CLI()...)

	log := opts.Logger.With().Str("engine", "vllm_process").Logger()
	p := &VLLMProcess{
		VLLMServer: NewVLLMServer(baseURL, opts.APIKey, opts.Args.Model, opts.Logger),
		exited:     make(chan struct{}),
		stderr:     newTailBuffer(4096),
		log:        log,
	}
	cmd := exec.Command(bin, args...)
	cmd.Stdout = &lineLogger{log: log, level: zerolog.DebugLevel, stream: "stdout"}
	cmd.Stderr = io.MultiWriter(p.stderr, &lineLogger{log: log, level: zerolog.DebugLevel, stream: "stderr"})
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start vllm: %w", err)
	}
	p.cmd = cmd
	log.Info().Int("pid", cmd.Process.Pid).Str("url", baseURL).Strs("args", args).Msg("vllm started")

	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()

	readyCtx, cancel := context.WithTimeout(ctx, opts.StartupTimeout)
	defer cancel()
	if err := waitReady(readyCtx, p.VLLMServer, p.exited); err != nil {
		if errors.Is(err, errExited) {
			log.Error().Err(p.waitErr).Int("pid", cmd.Process.Pid).Msg("vllm exited before ready")
			return nil, fmt.Errorf("vllm exited before ready (%v); stderr tail: %s", p.waitErr, p.stderr.String())
		}
		_ = p.Close()
		log.Error().Err(err).Int("pid", cmd.Process.Pid).Msg("vllm not ready")
		return nil, fmt.Errorf("vllm not ready at %s: %w", baseURL, err)
	}
	log.Info().Int("pid", cmd.Process.Pid).Str("url", baseURL).Msg("vllm ready")
	return p, nil
}

// PID returns the child's process id.
func (p *VLLMProcess) PID() int { return p.cmd.Process.Pid }

// Exited is closed once the child has exited.
func (p *VLLMProcess) Exited() <-chan struct{} { return p.exited }

// Close terminates the child: SIGTERM first, then kill after a grace period.
func (p *VLLMProcess) Close() error {
	p.closeOnce.Do(func() {
		_ = p.VLLMServer.Close()
		if p.cmd == nil || p.cmd.Process == nil {
			return
		}
		select {
		case <-p.exited:
			return
		default:
		}
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = p.cmd.Process.Kill()
		}
		select {
		case <-p.exited:
		case <-time.After(stopGrace):
			p.log.Warn().Int("pid", p.cmd.Process.Pid).Msg("vllm did not stop, killing")
			p.closeErr = p.cmd.Process.Kill()
			<-p.exited
		}
		p.log.Info().Int("pid", p.cmd.Process.Pid).Msg("vllm stopped")
	})
	return p.closeErr
}

var errExited = errors.New("process exited")

// waitReady polls s.Ping until it succeeds, ctx ends, or exited is closed.
// A nil exited channel disables exit detection.
func waitReady(ctx context.Context, s *VLLMServer, exited <-chan struct{}) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.Ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-exited:
			return errExited
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// tailBuffer keeps the last n bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	n   int
	buf []byte
}

func newTailBuffer(n int) *tailBuffer { return &tailBuffer{n: n} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.n; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

// lineLogger forwards complete lines written by the child to the logger.
type lineLogger struct {
	mu      sync.Mutex
	log     zerolog.Logger
	level   zerolog.Level
	stream  string
	partial []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.partial = append(l.partial, p...)
	for {
		i := bytes.IndexByte(l.partial, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimRight(string(l.partial[:i]), "\r"); line != "" {
			l.log.WithLevel(l.level).Str("stream", l.stream).Msg(line)
		}
		l.partial = l.partial[i+1:]
	}
	return len(p), nil
}
