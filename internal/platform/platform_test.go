package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		goos, goarch string
		want         Tag
	}{
		{"darwin", "arm64", MacOSAppleSilicon},
		{"darwin", "aarch64", MacOSAppleSilicon},
		{"Darwin", "ARM64", MacOSAppleSilicon},
		{"darwin", "amd64", MacOSIntel},
		{"linux", "amd64", Linux},
		{"linux", "arm64", Linux},
		{"windows", "amd64", Windows},
		{"freebsd", "amd64", Unknown},
		{"", "", Unknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Detect(c.goos, c.goarch), "%s/%s", c.goos, c.goarch)
	}
}

func TestSelect_Table(t *testing.T) {
	cases := []struct {
		tag     Tag
		cuda    bool
		name    string
		backend Backend
		wantCUD bool
		wantMPS bool
	}{
		{MacOSAppleSilicon, false, "macOS Apple Silicon", BackendCPU, false, true},
		{MacOSAppleSilicon, true, "macOS Apple Silicon", BackendCPU, false, true},
		{MacOSIntel, false, "macOS Intel", BackendCPU, false, false},
		{MacOSIntel, true, "macOS Intel", BackendCPU, false, false},
		{Linux, false, "Linux", BackendCPU, false, false},
		{Linux, true, "Linux", BackendCUDA, true, false},
		{Windows, false, "Windows", BackendCPU, false, false},
		{Windows, true, "Windows", BackendCUDA, true, false},
		{Unknown, false, "Linux", BackendCPU, false, false},
		{Unknown, true, "Linux", BackendCUDA, true, false},
	}
	for _, c := range cases {
		cfg := Select(c.tag, c.cuda)
		assert.Equal(t, c.name, cfg.Name, "%s cuda=%v", c.tag, c.cuda)
		assert.Equal(t, c.backend, cfg.Backend, "%s cuda=%v", c.tag, c.cuda)
		assert.Equal(t, c.wantCUD, cfg.SupportsCUDA, "%s cuda=%v", c.tag, c.cuda)
		assert.Equal(t, c.wantMPS, cfg.SupportsMPS, "%s cuda=%v", c.tag, c.cuda)
	}
}

func TestSelect_EveryTagHasRecord(t *testing.T) {
	for _, tag := range Tags {
		_, ok := table[tag]
		assert.True(t, ok, "missing table entry for %s", tag)
	}
}

func TestSelect_UnlistedTagUsesUnknown(t *testing.T) {
	assert.Equal(t, Select(Unknown, false), Select(Tag("plan9"), false))
	assert.Equal(t, Select(Unknown, true), Select(Tag("plan9"), true))
}

func TestSelect_IsPure(t *testing.T) {
	for _, tag := range Tags {
		for _, cuda := range []bool{false, true} {
			first := Select(tag, cuda)
			for i := 0; i < 3; i++ {
				require.Equal(t, first, Select(tag, cuda))
			}
		}
	}
}

func TestSelect_ReturnsCopyOfSetupSteps(t *testing.T) {
	cfg := Select(MacOSAppleSilicon, false)
	require.NotEmpty(t, cfg.AdditionalSetup)
	cfg.AdditionalSetup[0] = "mutated"
	assert.Equal(t, "brew install cmake", Select(MacOSAppleSilicon, false).AdditionalSetup[0])
}

func TestResolve_ProbesOnlyCUDACapablePlatforms(t *testing.T) {
	calls := 0
	probe := func(context.Context) bool { calls++; return true }

	info := Resolve(context.Background(), "darwin", "arm64", probe)
	assert.Equal(t, 0, calls)
	assert.False(t, info.Config.SupportsCUDA)

	info = Resolve(context.Background(), "linux", "amd64", probe)
	assert.Equal(t, 1, calls)
	assert.True(t, info.Config.SupportsCUDA)
	assert.Equal(t, Linux, info.Tag)
	assert.Equal(t, "linux", info.OS)
	assert.Equal(t, "amd64", info.Arch)

	info = Resolve(context.Background(), "linux", "amd64", nil)
	assert.False(t, info.Config.SupportsCUDA)
}

func TestGPUSummary(t *testing.T) {
	assert.Equal(t, "CUDA enabled", Select(Linux, true).GPUSummary())
	assert.Equal(t, "MPS (Apple Silicon) enabled", Select(MacOSAppleSilicon, false).GPUSummary())
	assert.Equal(t, "CPU only", Select(Windows, false).GPUSummary())
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "microsoft/DialoGPT-medium", DefaultModel(Select(Linux, true)))
	assert.Equal(t, "microsoft/DialoGPT-small", DefaultModel(Select(Linux, false)))
	assert.Equal(t, "microsoft/DialoGPT-small", DefaultModel(Select(MacOSAppleSilicon, false)))
}

func TestInstallCommand(t *testing.T) {
	mac := Info{Tag: MacOSIntel, Config: Select(MacOSIntel, false)}
	assert.Contains(t, InstallCommand(mac), "--no-build-isolation")

	cuda := Info{Tag: Linux, Config: Select(Linux, true)}
	assert.Contains(t, InstallCommand(cuda), "whl/cu121")

	cpu := Info{Tag: Windows, Config: Select(Windows, true)}
	assert.Contains(t, InstallCommand(cpu), "whl/cpu")
}
