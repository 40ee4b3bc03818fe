package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// ModelName may stay empty; the caller fills it from the platform default.
type Config struct {
	ModelName              string   `json:"model_name" yaml:"model_name" toml:"model_name"`
	Host                   string   `json:"host" yaml:"host" toml:"host"`
	Port                   int      `json:"port" yaml:"port" toml:"port"`
	MaxModelLen            int      `json:"max_model_len" yaml:"max_model_len" toml:"max_model_len"`
	GPUMemoryUtilization   float64  `json:"gpu_memory_utilization" yaml:"gpu_memory_utilization" toml:"gpu_memory_utilization"`
	TensorParallelSize     int      `json:"tensor_parallel_size" yaml:"tensor_parallel_size" toml:"tensor_parallel_size"`
	TrustRemoteCode        bool     `json:"trust_remote_code" yaml:"trust_remote_code" toml:"trust_remote_code"`
	EnforceEager           bool     `json:"enforce_eager" yaml:"enforce_eager" toml:"enforce_eager"`
	DisableCustomAllReduce bool     `json:"disable_custom_all_reduce" yaml:"disable_custom_all_reduce" toml:"disable_custom_all_reduce"`
	Engine                 string   `json:"engine" yaml:"engine" toml:"engine"`
	VLLMBin                string   `json:"vllm_bin" yaml:"vllm_bin" toml:"vllm_bin"`
	VLLMURL                string   `json:"vllm_url" yaml:"vllm_url" toml:"vllm_url"`
	VLLMAPIKey             string   `json:"vllm_api_key" yaml:"vllm_api_key" toml:"vllm_api_key"`
	EngineFallback         bool     `json:"engine_fallback" yaml:"engine_fallback" toml:"engine_fallback"`
	EngineStartupTimeout   Duration `json:"engine_startup_timeout" yaml:"engine_startup_timeout" toml:"engine_startup_timeout"`
	CUDAProbeTimeout       Duration `json:"cuda_probe_timeout" yaml:"cuda_probe_timeout" toml:"cuda_probe_timeout"`
	// GenerationTimeout bounds a single chat completion; zero disables it.
	GenerationTimeout Duration `json:"generation_timeout" yaml:"generation_timeout" toml:"generation_timeout"`
	LogLevel          string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat         string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxBodyBytes      int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Host:                 "0.0.0.0",
		Port:                 8000,
		MaxModelLen:          2048,
		GPUMemoryUtilization: 0.9,
		TensorParallelSize:   1,
		TrustRemoteCode:      true,
		Engine:               "vllm",
		VLLMBin:              "vllm",
		EngineFallback:       true,
		EngineStartupTimeout: Duration{10 * time.Minute},
		CUDAProbeTimeout:     Duration{10 * time.Second},
		LogLevel:             "info",
		LogFormat:            "console",
		MaxBodyBytes:         1 << 20,
		CORSOrigins:          []string{"*"},
	}
}

// Addr is the HTTP listen address.
func (c Config) Addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }

// Load reads a configuration file based on its extension, on top of Defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Duration is a time.Duration read from strings such as "90s" or "10m".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.Duration.String()), nil }
