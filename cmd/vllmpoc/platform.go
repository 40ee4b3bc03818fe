package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vllmpoc/internal/engine"
	"vllmpoc/internal/platform"
)

// doctorCommandTimeout bounds each python probe run by doctor.
const doctorCommandTimeout = 60 * time.Second

func newPlatformCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Print the detected platform, its configuration and the engine arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd, ro, nil)
			if err != nil {
				return err
			}
			info, model := resolvePlatform(cmd.Context(), cfg)
			return writeJSON(cmd.OutOrStdout(), struct {
				platform.Info
				Model      string        `json:"model"`
				EngineArgs platform.Args `json:"engine_args"`
				LlamaBuilt bool          `json:"llama_built"`
			}{info, model, platform.EngineArgs(info, engineSettings(cfg, model)), engine.LlamaBuilt()})
		},
	}
}

func newDoctorCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the Python, PyTorch and vLLM installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, ro, nil)
			if err != nil {
				return err
			}
			info, _ := resolvePlatform(cmd.Context(), cfg)
			report := platform.Doctor(cmd.Context(), info, platform.ExecRunner(doctorCommandTimeout))
			log.Debug().Bool("vllm", report.VLLMAvailable).Int("recommendations", len(report.Recommendations)).Msg("doctor finished")
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newInstallCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install-cmd",
		Short: "Print the install recipe for this platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd, ro, nil)
			if err != nil {
				return err
			}
			info, _ := resolvePlatform(cmd.Context(), cfg)
			_, err = fmt.Fprint(cmd.OutOrStdout(), platform.InstallCommand(info))
			return err
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
