// Package platform maps the host operating system and CPU architecture to a
// fixed configuration record that drives inference engine arguments.
//
// Selection is a table lookup keyed by Tag. The only impure input is the CUDA
// probe (see probe.go), which callers run once and pass in as a boolean.
package platform

import (
	"context"
	"runtime"
	"strings"
)

// Tag identifies a supported platform family.
type Tag string

const (
	MacOSAppleSilicon Tag = "macos_apple_silicon"
	MacOSIntel        Tag = "macos_intel"
	Linux             Tag = "linux"
	Windows           Tag = "windows"
	Unknown           Tag = "unknown"
)

// Tags lists every tag the table knows about.
var Tags = []Tag{MacOSAppleSilicon, MacOSIntel, Linux, Windows, Unknown}

// Backend is the compute backend the engine is asked to use.
type Backend string

const (
	BackendCPU  Backend = "cpu"
	BackendCUDA Backend = "cuda"
)

// Config is the immutable record selected for a platform.
type Config struct {
	Name             string   `json:"name"`
	SupportsCUDA     bool     `json:"supports_cuda"`
	SupportsMPS      bool     `json:"supports_mps"`
	Backend          Backend  `json:"backend"`
	InstallMethod    string   `json:"installation_method"`
	RequirementsFile string   `json:"requirements_file"`
	DockerBaseImage  string   `json:"docker_base_image"`
	AdditionalSetup  []string `json:"additional_setup,omitempty"`
}

// GPUSummary describes the accelerator in the form reported by /health.
func (c Config) GPUSummary() string {
	switch {
	case c.SupportsCUDA:
		return "CUDA enabled"
	case c.SupportsMPS:
		return "MPS (Apple Silicon) enabled"
	default:
		return "CPU only"
	}
}

// entry is a table row. cudaCapable marks platforms whose record depends on
// the CUDA probe.
type entry struct {
	cfg         Config
	cudaCapable bool
}

var linuxEntry = entry{
	cfg: Config{
		Name:             "Linux",
		Backend:          BackendCPU,
		InstallMethod:    "pip",
		RequirementsFile: "requirements.txt",
		DockerBaseImage:  "nvidia/cuda:12.1-devel-ubuntu22.04",
	},
	cudaCapable: true,
}

var table = map[Tag]entry{
	MacOSAppleSilicon: {
		cfg: Config{
			Name:             "macOS Apple Silicon",
			SupportsMPS:      true,
			Backend:          BackendCPU,
			InstallMethod:    "pip_source",
			RequirementsFile: "requirements-macos.txt",
			DockerBaseImage:  "python:3.11-slim",
			AdditionalSetup: []string{
				"brew install cmake",
				"export MACOSX_DEPLOYMENT_TARGET=11.0",
				"pip install torch torchvision torchaudio",
			},
		},
	},
	MacOSIntel: {
		cfg: Config{
			Name:             "macOS Intel",
			Backend:          BackendCPU,
			InstallMethod:    "pip_source",
			RequirementsFile: "requirements-macos.txt",
			DockerBaseImage:  "python:3.11-slim",
			AdditionalSetup: []string{
				"brew install cmake",
				"pip install torch torchvision torchaudio",
			},
		},
	},
	Linux: linuxEntry,
	Windows: {
		cfg: Config{
			Name:             "Windows",
			Backend:          BackendCPU,
			InstallMethod:    "pip",
			RequirementsFile: "requirements-windows.txt",
			DockerBaseImage:  "mcr.microsoft.com/windows/servercore:ltsc2022",
			AdditionalSetup: []string{
				"Install Visual Studio Build Tools",
				"Install CUDA Toolkit if GPU acceleration needed",
			},
		},
		cudaCapable: true,
	},
	// Unknown hosts get the Linux record.
	Unknown: linuxEntry,
}

// Detect classifies an operating system and architecture pair, using the
// GOOS/GOARCH vocabulary.
func Detect(goos, goarch string) Tag {
	arch := strings.ToLower(goarch)
	switch strings.ToLower(goos) {
	case "darwin":
		if strings.Contains(arch, "arm") || strings.Contains(arch, "aarch64") {
			return MacOSAppleSilicon
		}
		return MacOSIntel
	case "linux":
		return Linux
	case "windows":
		return Windows
	default:
		return Unknown
	}
}

// Select returns the configuration record for tag. cudaAvailable only affects
// platforms that can host CUDA. Tags outside the table resolve to Unknown.
func Select(tag Tag, cudaAvailable bool) Config {
	e, ok := table[tag]
	if !ok {
		e = table[Unknown]
	}
	cfg := e.cfg
	cfg.AdditionalSetup = append([]string(nil), e.cfg.AdditionalSetup...)
	if e.cudaCapable && cudaAvailable {
		cfg.SupportsCUDA = true
		cfg.Backend = BackendCUDA
	}
	return cfg
}

// IsMacOS reports whether tag is one of the macOS variants.
func (t Tag) IsMacOS() bool { return t == MacOSAppleSilicon || t == MacOSIntel }

// Info is the resolved platform for this process.
type Info struct {
	Tag    Tag    `json:"platform"`
	OS     string `json:"os"`
	Arch   string `json:"arch"`
	Config Config `json:"config"`
}

// Resolve detects the tag for goos/goarch and selects its record. The probe is
// consulted only for CUDA-capable platforms; a nil probe means no CUDA.
func Resolve(ctx context.Context, goos, goarch string, probe ProbeFunc) Info {
	tag := Detect(goos, goarch)
	cuda := false
	if e, ok := table[tag]; ok && e.cudaCapable && probe != nil {
		cuda = probe(ctx)
	}
	return Info{Tag: tag, OS: goos, Arch: goarch, Config: Select(tag, cuda)}
}

// Current resolves the platform of the running process.
func Current(ctx context.Context, probe ProbeFunc) Info {
	return Resolve(ctx, runtime.GOOS, runtime.GOARCH, probe)
}

// DefaultModel picks a model small enough for the platform when MODEL_NAME is unset.
func DefaultModel(cfg Config) string {
	if cfg.SupportsCUDA {
		return "microsoft/DialoGPT-medium"
	}
	return "microsoft/DialoGPT-small"
}
