package platform

const installMacOS = `# macOS Installation (Apple Silicon/Intel)
pip install --upgrade pip
pip install torch torchvision torchaudio
pip install vllm --no-build-isolation
# If above fails, try: pip install vllm --no-deps
`

const installLinuxCUDA = `# Linux with CUDA Installation
pip install --upgrade pip
pip install torch torchvision torchaudio --index-url https://download.pytorch.org/whl/cu121
pip install vllm
`

const installCPU = `# CPU-only Installation
pip install --upgrade pip
pip install torch torchvision torchaudio --index-url https://download.pytorch.org/whl/cpu
pip install vllm
`

// InstallCommand returns the shell recipe that installs the engine on info's platform.
func InstallCommand(info Info) string {
	switch {
	case info.Tag.IsMacOS():
		return installMacOS
	case info.Tag == Linux && info.Config.SupportsCUDA:
		return installLinuxCUDA
	default:
		return installCPU
	}
}
