package platform

import (
	"strconv"

	"github.com/rs/zerolog"
)

// maxNumSeqsMacOS caps concurrent sequences on macOS, where vLLM runs on CPU.
const maxNumSeqsMacOS = 16

// Settings are the user-tunable engine knobs, usually read from the environment.
type Settings struct {
	Model                  string
	TensorParallelSize     int
	MaxModelLen            int
	GPUMemoryUtilization   float64
	TrustRemoteCode        bool
	EnforceEager           bool
	DisableCustomAllReduce bool
}

// Args are the engine start arguments derived from a platform and Settings.
// Zero values mean the argument is not passed.
type Args struct {
	Model                  string  `json:"model"`
	TensorParallelSize     int     `json:"tensor_parallel_size"`
	MaxModelLen            int     `json:"max_model_len"`
	TrustRemoteCode        bool    `json:"trust_remote_code"`
	GPUMemoryUtilization   float64 `json:"gpu_memory_utilization,omitempty"`
	DType                  string  `json:"dtype,omitempty"`
	EnforceEager           bool    `json:"enforce_eager,omitempty"`
	DisableCustomAllReduce bool    `json:"disable_custom_all_reduce,omitempty"`
	MaxNumSeqs             int     `json:"max_num_seqs,omitempty"`
}

// EngineArgs builds the engine arguments for info.
//
// CUDA hosts get a memory utilization target and dtype=auto. Everything else
// runs eagerly without the custom all-reduce kernel, and macOS additionally
// caps the number of concurrent sequences. Explicit EnforceEager or
// DisableCustomAllReduce settings are honored on CUDA hosts as well.
func EngineArgs(info Info, s Settings) Args {
	a := Args{
		Model:                  s.Model,
		TensorParallelSize:     s.TensorParallelSize,
		MaxModelLen:            s.MaxModelLen,
		TrustRemoteCode:        s.TrustRemoteCode,
		EnforceEager:           s.EnforceEager,
		DisableCustomAllReduce: s.DisableCustomAllReduce,
	}
	if info.Config.SupportsCUDA {
		a.GPUMemoryUtilization = s.GPUMemoryUtilization
		a.DType = "auto"
	} else {
		a.EnforceEager = true
		a.DisableCustomAllReduce = true
	}
	if info.Tag.IsMacOS() {
		a.EnforceEager = true
		a.DisableCustomAllReduce = true
		a.MaxNumSeqs = maxNumSeqsMacOS
	}
	return a
}

// CLI renders the arguments as `vllm serve` flags. The model is not included;
// it is the positional argument of the serve command.
func (a Args) CLI() []string {
	var out []string
	if a.TensorParallelSize > 0 {
		out = append(out, "--tensor-parallel-size", strconv.Itoa(a.TensorParallelSize))
	}
	if a.MaxModelLen > 0 {
		out = append(out, "--max-model-len", strconv.Itoa(a.MaxModelLen))
	}
	if a.TrustRemoteCode {
		out = append(out, "--trust-remote-code")
	}
	if a.GPUMemoryUtilization > 0 {
		out = append(out, "--gpu-memory-utilization", strconv.FormatFloat(a.GPUMemoryUtilization, 'f', -1, 64))
	}
	if a.DType != "" {
		out = append(out, "--dtype", a.DType)
	}
	if a.EnforceEager {
		out = append(out, "--enforce-eager")
	}
	if a.DisableCustomAllReduce {
		out = append(out, "--disable-custom-all-reduce")
	}
	if a.MaxNumSeqs > 0 {
		out = append(out, "--max-num-seqs", strconv.Itoa(a.MaxNumSeqs))
	}
	return out
}

// MarshalZerologObject lets Args be logged with Object("engine_args", args).
func (a Args) MarshalZerologObject(e *zerolog.Event) {
	e.Str("model", a.Model).
		Int("tensor_parallel_size", a.TensorParallelSize).
		Int("max_model_len", a.MaxModelLen).
		Bool("trust_remote_code", a.TrustRemoteCode)
	if a.GPUMemoryUtilization > 0 {
		e.Float64("gpu_memory_utilization", a.GPUMemoryUtilization)
	}
	if a.DType != "" {
		e.Str("dtype", a.DType)
	}
	if a.EnforceEager {
		e.Bool("enforce_eager", true)
	}
	if a.DisableCustomAllReduce {
		e.Bool("disable_custom_all_reduce", true)
	}
	if a.MaxNumSeqs > 0 {
		e.Int("max_num_seqs", a.MaxNumSeqs)
	}
}
