package system

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchitecture(t *testing.T) {
	assert.Equal(t, "64-bit", Architecture("amd64"))
	assert.Equal(t, "32-bit", Architecture("386"))
	assert.Equal(t, "ARM64", Architecture("arm64"))
	assert.Equal(t, "ARM32", Architecture("arm"))
	assert.Equal(t, "Unknown", Architecture("riscv64"))
}

func TestHypervisorFlag(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.False(t, hypervisorFlag(fs))

	require.NoError(t, afero.WriteFile(fs, procCPUInfo,
		[]byte("processor\t: 0\nflags\t\t: fpu vme de pse hypervisor lahf_lm\n"), 0o444))
	assert.True(t, hypervisorFlag(fs))
}

func TestInfoString(t *testing.T) {
	i := Info{OSName: "debian", OSVersion: "12.5", Architecture: "ARM64"}
	assert.Equal(t, "debian 12.5 ARM64", i.String())
}
