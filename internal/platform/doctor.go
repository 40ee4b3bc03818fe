package platform

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Runner executes a command and returns its trimmed standard output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// ExecRunner runs commands on the host, each bounded by timeout.
func ExecRunner(timeout time.Duration) Runner {
	return func(ctx context.Context, name string, args ...string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		out, err := exec.CommandContext(ctx, name, args...).Output()
		return strings.TrimSpace(string(out)), err
	}
}

// Report is the result of an environment validation.
type Report struct {
	Platform        Tag      `json:"platform"`
	GoVersion       string   `json:"go_version"`
	Python          string   `json:"python,omitempty"`
	TorchAvailable  bool     `json:"torch_available"`
	CUDAAvailable   bool     `json:"cuda_available"`
	MPSAvailable    bool     `json:"mps_available"`
	VLLMAvailable   bool     `json:"vllm_available"`
	VLLMVersion     string   `json:"vllm_version,omitempty"`
	Recommendations []string `json:"recommendations"`
}

var pythonCandidates = []string{"python3", "python"}

const torchProbe = "import torch; print(torch.cuda.is_available(), hasattr(torch.backends, 'mps') and torch.backends.mps.is_available())"

// Doctor checks the Python side of the engine installation and suggests fixes.
func Doctor(ctx context.Context, info Info, run Runner) Report {
	r := Report{Platform: info.Tag, GoVersion: runtime.Version(), Recommendations: []string{}}

	for _, py := range pythonCandidates {
		if out, err := run(ctx, py, "-c", "import sys; print(sys.executable)"); err == nil && out != "" {
			r.Python = out
			break
		}
	}
	if r.Python == "" {
		r.Recommendations = append(r.Recommendations, "Install Python 3")
	} else {
		if out, err := run(ctx, r.Python, "-c", torchProbe); err == nil {
			r.TorchAvailable = true
			fields := strings.Fields(out)
			r.CUDAAvailable = len(fields) > 0 && fields[0] == "True"
			r.MPSAvailable = len(fields) > 1 && fields[1] == "True"
		} else {
			r.Recommendations = append(r.Recommendations, "Install PyTorch")
		}
		if out, err := run(ctx, r.Python, "-c", "import vllm; print(vllm.__version__)"); err == nil {
			r.VLLMAvailable = true
			r.VLLMVersion = out
		} else {
			r.Recommendations = append(r.Recommendations, "Install vLLM")
		}
	}

	if info.Tag.IsMacOS() && !r.TorchAvailable {
		r.Recommendations = append(r.Recommendations, "Install PyTorch for macOS")
	}
	if info.Config.SupportsCUDA && !r.CUDAAvailable {
		r.Recommendations = append(r.Recommendations, "CUDA detected but PyTorch CUDA not available")
	}
	return r
}
