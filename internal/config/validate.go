package config

import (
	"errors"
	"fmt"
	"strings"

	"vllmpoc/internal/engine"
	"vllmpoc/internal/logging"
)

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxModelLen <= 0 {
		errs = append(errs, fmt.Errorf("max_model_len must be positive, got %d", c.MaxModelLen))
	}
	if c.GPUMemoryUtilization <= 0 || c.GPUMemoryUtilization > 1 {
		errs = append(errs, fmt.Errorf("gpu_memory_utilization must be in (0, 1], got %g", c.GPUMemoryUtilization))
	}
	if c.TensorParallelSize < 1 {
		errs = append(errs, fmt.Errorf("tensor_parallel_size must be at least 1, got %d", c.TensorParallelSize))
	}
	kind, err := engine.ParseKind(c.Engine)
	if err != nil {
		errs = append(errs, err)
	}
	if kind == engine.KindVLLMServer && strings.TrimSpace(c.VLLMURL) == "" {
		errs = append(errs, errors.New("engine vllm-server requires vllm_url"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if f := strings.ToLower(c.LogFormat); f != "console" && f != "json" {
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes))
	}
	if c.EngineStartupTimeout.Duration <= 0 {
		errs = append(errs, errors.New("engine_startup_timeout must be positive"))
	}
	if c.GenerationTimeout.Duration < 0 {
		errs = append(errs, errors.New("generation_timeout must not be negative"))
	}
	return errors.Join(errs...)
}
