package health

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmon/internal/device"
	"github.com/sigreer/diskmon/internal/shell"
)

func TestParsePhysicalDisk(t *testing.T) {
	tests := []struct {
		health      string
		operational string
		want        Status
	}{
		{"Healthy", "OK", StatusOK},
		{"Unhealthy", "OK", StatusFailing},
		{"Healthy", "Degraded", StatusFailing},
		{"Warning", "OK", StatusWarning},
		{"Unknown", "OK", StatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.health+"/"+tt.operational, func(t *testing.T) {
			data := fmt.Sprintf(`{"FriendlyName":"Samsung SSD 980","Model":"","SerialNumber":" 0025_38B2 ",`+
				`"Manufacturer":"Samsung","HealthStatus":%q,"OperationalStatus":%q}`, tt.health, tt.operational)
			r, err := ParsePhysicalDisk([]byte(data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Status)
			assert.Equal(t, "Samsung SSD 980", r.Model)
			assert.Equal(t, "0025_38B2", r.Serial)
			assert.Equal(t, "Samsung", r.Brand)
		})
	}

	_, err := ParsePhysicalDisk([]byte("PHYSICAL_DISK_HEALTH_NOT_FOUND"))
	assert.Error(t, err)
}

// psRunner answers powershell and records smartctl attempts
type psRunner struct {
	*shell.Fake
	ps shell.Output
}

func (r *psRunner) Run(ctx context.Context, name string, args ...string) (shell.Output, error) {
	if name == "powershell" {
		return r.ps, nil
	}
	return r.Fake.Run(ctx, name, args...)
}

func TestWindowsChainFallsBackToOSAPI(t *testing.T) {
	runner := &psRunner{
		Fake: shell.NewFake().Install("smartctl", `C:\Windows\smartctl.exe`),
		ps:   shell.Output{Stdout: []byte(`{"Model":"WDC","HealthStatus":"Healthy","OperationalStatus":"OK"}`)},
	}
	deps := Deps{Runner: runner, Log: logr.Discard()}
	s := NewStrategy("windows", deps)

	r := s.Chain.Run(context.Background(), device.PhysicalDisk(1))
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, MethodOSNativeAPI, r.Method)
	assert.Equal(t, "WDC", r.Model)

	// every smartctl variant was tried before the OS API
	calls := runner.Calls()
	require.Len(t, calls, 4)
	assert.True(t, strings.HasPrefix(calls[1], SmartctlWindowsPath))
}

func TestWindowsChainNativeToolFirst(t *testing.T) {
	runner := &psRunner{Fake: shell.NewFake().
		Install("smartctl", `C:\Windows\smartctl.exe`).
		Stdout(ataOutput, "smartctl", "-H", "-i", "-A", "/dev/pd0")}
	s := NewStrategy("windows", Deps{Runner: runner, Log: logr.Discard()})

	r := s.Chain.Run(context.Background(), device.PhysicalDisk(0))
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, MethodNativeTool, r.Method)
	assert.False(t, r.RAID)
}

func TestWindowsChainOSAPIFailure(t *testing.T) {
	runner := &psRunner{Fake: shell.NewFake(), ps: shell.Output{ExitCode: 1, Stdout: []byte("PHYSICAL_DISK_HEALTH_NOT_FOUND")}}
	s := NewStrategy("windows", Deps{Runner: runner, Log: logr.Discard()})

	r := s.Chain.Run(context.Background(), device.PhysicalDisk(3))
	assert.Equal(t, StatusUnknown, r.Status)
	assert.Equal(t, MethodOSNativeAPI, r.Method)
}
