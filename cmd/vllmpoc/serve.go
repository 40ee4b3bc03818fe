package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vllmpoc/internal/engine"
	"vllmpoc/internal/httpapi"
	"vllmpoc/internal/platform"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, ro *rootOptions, so *serveOptions) error {
	cfg, log, err := setup(cmd, ro, so)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, model := resolvePlatform(ctx, cfg)
	args := platform.EngineArgs(info, engineSettings(cfg, model))
	log.Info().Str("platform", string(info.Tag)).Str("backend", string(info.Config.Backend)).
		Bool("cuda", info.Config.SupportsCUDA).Object("engine_args", args).Msg("platform detected")

	kind, err := engine.ParseKind(cfg.Engine)
	if err != nil {
		return err
	}

	var handle engine.Handle
	// Canceled when shutdown starts so in-flight generations stop.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	mux := httpapi.NewMux(httpapi.Options{
		Engines:           &handle,
		Model:             model,
		Platform:          info,
		Version:           version,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		GenerationTimeout: cfg.GenerationTimeout.Duration,
		CORSOrigins:       cfg.CORSOrigins,
		BaseContext:       baseCtx,
		Logger:            log,
		LogLevel:          httpapi.ParseLevel(cfg.LogLevel),
	})
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	log.Info().Str("addr", ln.Addr().String()).Str("model", model).Str("engine", string(kind)).Msg("vllmpoc listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	// The engine loads in the background; /health answers 503 until it is set.
	g.Go(func() error {
		start := time.Now()
		e, err := engine.OpenWithFallback(gctx, kind, engine.Options{
			Args:           args,
			Bin:            cfg.VLLMBin,
			URL:            cfg.VLLMURL,
			APIKey:         cfg.VLLMAPIKey,
			StartupTimeout: cfg.EngineStartupTimeout.Duration,
			Logger:         log,
		}, cfg.EngineFallback)
		if e == nil {
			if gctx.Err() == nil {
				log.Error().Err(err).Str("engine", string(kind)).Msg("engine init failed; serving without a model")
			}
			return nil
		}
		if gctx.Err() != nil {
			_ = e.Close()
			return nil
		}
		handle.Set(e)
		ev := log.Info()
		if e.Mode() == engine.ModeStandIn && kind != engine.KindStandIn {
			ev = log.Warn().AnErr("init_error", err)
		}
		if u, ok := e.(interface{ BaseURL() string }); ok {
			ev = ev.Str("url", u.BaseURL())
		}
		ev.Str("model", e.Name()).Str("mode", string(e.Mode())).Dur("dur", time.Since(start)).Msg("engine ready")
		if p, ok := e.(*engine.VLLMProcess); ok {
			handle.Supervise(gctx, p, cfg.EngineFallback, log)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		cancelBase()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	if rerr := handle.Release(); rerr != nil {
		log.Warn().Err(rerr).Msg("engine close")
	}
	log.Info().Msg("stopped")
	return err
}
