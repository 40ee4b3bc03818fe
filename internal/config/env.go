package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// parseBool accepts only "true" (any case) as true.
func parseBool(s string) bool { return strings.EqualFold(strings.TrimSpace(s), "true") }

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FromEnv overlays environment variables on cfg. Unset variables keep the
// value already in cfg. Every malformed number is reported.
func FromEnv(cfg Config, lookup LookupFunc) (Config, error) {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			*dst = parseBool(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	str("MODEL_NAME", &cfg.ModelName)
	str("HOST", &cfg.Host)
	integer("PORT", &cfg.Port)
	integer("MAX_MODEL_LEN", &cfg.MaxModelLen)
	float("GPU_MEMORY_UTILIZATION", &cfg.GPUMemoryUtilization)
	integer("TENSOR_PARALLEL_SIZE", &cfg.TensorParallelSize)
	boolean("TRUST_REMOTE_CODE", &cfg.TrustRemoteCode)
	boolean("ENFORCE_EAGER", &cfg.EnforceEager)
	boolean("DISABLE_CUSTOM_ALL_REDUCE", &cfg.DisableCustomAllReduce)

	str("ENGINE", &cfg.Engine)
	str("VLLM_BIN", &cfg.VLLMBin)
	str("VLLM_URL", &cfg.VLLMURL)
	str("VLLM_API_KEY", &cfg.VLLMAPIKey)
	boolean("ENGINE_FALLBACK", &cfg.EngineFallback)
	duration("ENGINE_STARTUP_TIMEOUT", &cfg.EngineStartupTimeout)
	duration("CUDA_PROBE_TIMEOUT", &cfg.CUDAProbeTimeout)
	duration("GENERATION_TIMEOUT", &cfg.GenerationTimeout)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	if v, ok := lookup("MAX_BODY_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_BODY_BYTES: %w", err))
		} else {
			cfg.MaxBodyBytes = n
		}
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	return cfg, errors.Join(errs...)
}
