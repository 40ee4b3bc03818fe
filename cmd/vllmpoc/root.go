package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vllmpoc/internal/config"
	"vllmpoc/internal/logging"
	"vllmpoc/internal/platform"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
}

// serveOptions are the serve-only flags. They override the environment and
// the config file when set.
type serveOptions struct {
	host    string
	port    int
	model   string
	engine  string
	vllmURL string
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	so := &serveOptions{}

	root := &cobra.Command{
		Use:           "vllmpoc",
		Short:         "Platform-aware chat completion server backed by vLLM",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand the server runs.
		RunE: func(cmd *cobra.Command, args []string) error { return runServe(cmd, ro, so) },
	}
	pf := root.PersistentFlags()
	pf.StringVar(&ro.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&ro.envFile, "env-file", "", "Env file to load (default ./.env when present)")
	pf.StringVar(&ro.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults LOG_LEVEL or info)")
	pf.StringVar(&ro.logFormat, "log-format", "", "Log format: console|json (defaults LOG_FORMAT or console)")

	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Start the HTTP server and load the engine",
		Example: "  vllmpoc serve --port 8000\n  ENGINE=standin vllmpoc serve",
		Args:    cobra.NoArgs,
		RunE:    func(cmd *cobra.Command, args []string) error { return runServe(cmd, ro, so) },
	}
	sf := serve.Flags()
	sf.StringVar(&so.host, "host", "", "Listen host (defaults HOST or 0.0.0.0)")
	sf.IntVar(&so.port, "port", 0, "Listen port (defaults PORT or 8000)")
	sf.StringVar(&so.model, "model", "", "Model to serve (defaults MODEL_NAME or a platform default)")
	sf.StringVar(&so.engine, "engine", "", "Engine: vllm|vllm-server|llama|standin (defaults ENGINE or vllm)")
	sf.StringVar(&so.vllmURL, "vllm-url", "", "Base URL of a running vLLM server for --engine vllm-server")

	root.AddCommand(serve, newPlatformCmd(ro), newDoctorCmd(ro), newInstallCmd(ro))
	return root
}

// loadConfig layers defaults, the config file, the environment and the flags
// set on cmd, in increasing precedence, and validates the result.
func loadConfig(cmd *cobra.Command, ro *rootOptions, so *serveOptions, lookup config.LookupFunc) (config.Config, error) {
	cfg := config.Defaults()
	if ro.configPath != "" {
		var err error
		if cfg, err = config.Load(ro.configPath); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if err := config.LoadDotEnv(ro.envFile); err != nil {
		return cfg, err
	}
	cfg, err := config.FromEnv(cfg, lookup)
	if err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = ro.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = ro.logFormat
	}
	if so != nil {
		if flags.Changed("host") {
			cfg.Host = so.host
		}
		if flags.Changed("port") {
			cfg.Port = so.port
		}
		if flags.Changed("model") {
			cfg.ModelName = so.model
		}
		if flags.Changed("engine") {
			cfg.Engine = so.engine
		}
		if flags.Changed("vllm-url") {
			cfg.VLLMURL = so.vllmURL
		}
	}
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup loads the config and builds the logger for a command.
func setup(cmd *cobra.Command, ro *rootOptions, so *serveOptions) (config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig(cmd, ro, so, os.LookupEnv)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	return cfg, log, nil
}

// resolvePlatform probes CUDA once and fills in the platform default model.
func resolvePlatform(ctx context.Context, cfg config.Config) (platform.Info, string) {
	info := platform.Current(ctx, platform.Once(platform.NvidiaSMIProbe(cfg.CUDAProbeTimeout.Duration)))
	model := cfg.ModelName
	if model == "" {
		model = platform.DefaultModel(info.Config)
	}
	return info, model
}

func engineSettings(cfg config.Config, model string) platform.Settings {
	return platform.Settings{
		Model:                  model,
		TensorParallelSize:     cfg.TensorParallelSize,
		MaxModelLen:            cfg.MaxModelLen,
		GPUMemoryUtilization:   cfg.GPUMemoryUtilization,
		TrustRemoteCode:        cfg.TrustRemoteCode,
		EnforceEager:           cfg.EnforceEager,
		DisableCustomAllReduce: cfg.DisableCustomAllReduce,
	}
}
