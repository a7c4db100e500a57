package health

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmon/internal/cache"
	"github.com/sigreer/diskmon/internal/device"
	"github.com/sigreer/diskmon/internal/shell"
)

// stubProbe returns a fixed answer and counts calls
type stubProbe struct {
	name       string
	method     Method
	applies    bool
	result     Result
	conclusive bool
	calls      int
}

func (s *stubProbe) Name() string               { return s.name }
func (s *stubProbe) Method() Method             { return s.method }
func (s *stubProbe) Applies(device.Handle) bool { return s.applies }
func (s *stubProbe) Probe(context.Context, device.Handle) (Result, bool) {
	s.calls++
	return s.result, s.conclusive
}

func TestChainFirstConclusiveWins(t *testing.T) {
	native := &stubProbe{name: "native", method: MethodNativeTool, applies: true,
		result: Result{Model: "Disk X"}}
	kernel := &stubProbe{name: "kernel", method: MethodKernelFallback, applies: true,
		result: Result{Status: StatusWarning, Serial: "S1"}, conclusive: true}
	never := &stubProbe{name: "never", method: MethodOSNativeAPI, applies: true, conclusive: true,
		result: Result{Status: StatusFailing}}

	c := &Chain{Probes: []Probe{native, kernel, never}, Log: logr.Discard()}
	h := device.Handle{Path: "/dev/md0", RAID: true}

	r := c.Run(context.Background(), h)
	assert.Equal(t, StatusWarning, r.Status)
	assert.Equal(t, MethodKernelFallback, r.Method)
	assert.Equal(t, "Disk X", r.Model, "identity from inconclusive probes is kept")
	assert.Equal(t, "S1", r.Serial)
	assert.True(t, r.RAID)
	assert.Equal(t, 0, never.calls)

	// same inputs, same answer
	assert.Equal(t, r, c.Run(context.Background(), h))
}

func TestChainSkipsProbesThatDoNotApply(t *testing.T) {
	skipped := &stubProbe{name: "skipped", method: MethodNativeTool, applies: false, conclusive: true,
		result: Result{Status: StatusFailing}}
	kernel := &stubProbe{name: "kernel", method: MethodKernelFallback, applies: true, conclusive: true,
		result: Result{Status: StatusOK}}

	c := &Chain{Probes: []Probe{skipped, kernel}, Log: logr.Discard()}
	r := c.Run(context.Background(), device.Handle{Path: "/dev/sda"})
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, MethodKernelFallback, r.Method)
	assert.Equal(t, 0, skipped.calls)
}

func TestChainNothingConclusive(t *testing.T) {
	native := &stubProbe{name: "native", method: MethodNativeTool, applies: true}
	kernel := &stubProbe{name: "kernel", method: MethodKernelFallback, applies: true,
		result: Result{Model: "M"}}

	c := &Chain{Probes: []Probe{native, kernel}, Log: logr.Discard()}
	r := c.Run(context.Background(), device.Handle{})
	assert.Equal(t, StatusUnknown, r.Status)
	assert.Equal(t, MethodKernelFallback, r.Method)
	assert.Equal(t, "M", r.Model)

	c = &Chain{Probes: []Probe{&stubProbe{applies: false}}, Log: logr.Discard()}
	r = c.Run(context.Background(), device.Handle{})
	assert.Equal(t, Degraded(MethodError), r)
}

func TestChainStopsWhenContextDone(t *testing.T) {
	p := &stubProbe{name: "p", method: MethodNativeTool, applies: true, conclusive: true,
		result: Result{Status: StatusOK}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := (&Chain{Probes: []Probe{p}, Log: logr.Discard()}).Run(ctx, device.Handle{})
	assert.Equal(t, StatusUnknown, r.Status)
	assert.Equal(t, 0, p.calls)
}

func linuxDeps(t *testing.T, runner shell.Runner, files map[string]string) Deps {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o444))
	}
	return Deps{Runner: runner, Fs: fs, Cache: cache.New(), Log: logr.Discard()}
}

func TestLinuxStrategyNativeTool(t *testing.T) {
	runner := shell.NewFake().
		Install("smartctl", "/usr/sbin/smartctl").
		Stdout(nvmeOutput, "smartctl", "-H", "-i", "-A", "/dev/nvme0n1")
	s := NewStrategy("linux", linuxDeps(t, runner, map[string]string{
		device.ProcMounts: "/dev/nvme0n1p2 / ext4 rw 0 0\n",
	}))

	assert.True(t, s.ToolAvailable)
	r := s.Check(context.Background(), "/")
	assert.Equal(t, StatusFailing, r.Status)
	assert.Equal(t, MethodNativeTool, r.Method)
	assert.Equal(t, "23170Z800123", r.Serial)
}

func TestLinuxStrategyKernelFallbackWithoutTool(t *testing.T) {
	runner := shell.NewFake().
		Stdout("", "dmesg").
		Stdout("", "fsck", "-n", "/dev/sda1")
	s := NewStrategy("linux", linuxDeps(t, runner, map[string]string{
		device.ProcMounts:                 "/dev/sda1 / ext4 rw 0 0\n",
		"/sys/block/sda/device/model":     "ST2000DM008\n",
		"/sys/block/sda/device/ioerr_cnt": "0x0\n",
	}))

	assert.False(t, s.ToolAvailable)
	r := s.Check(context.Background(), "/")
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, MethodKernelFallback, r.Method)
	assert.Equal(t, "ST2000DM008", r.Model)
	assert.NotContains(t, runner.Calls(), "smartctl -H -i -A /dev/sda")
}

func TestLinuxStrategyUnknownWithoutSysfs(t *testing.T) {
	s := NewStrategy("linux", linuxDeps(t, shell.NewFake(), map[string]string{
		device.ProcMounts: "/dev/vda1 / ext4 rw 0 0\n",
	}))

	r := s.Check(context.Background(), "/")
	assert.Equal(t, StatusUnknown, r.Status)
	assert.Equal(t, MethodKernelFallback, r.Method)
}

func TestLinuxStrategyUnresolvable(t *testing.T) {
	s := NewStrategy("linux", linuxDeps(t, shell.NewFake(), map[string]string{
		device.ProcMounts: "overlay / overlay rw 0 0\n",
	}))

	r := s.Check(context.Background(), "/")
	assert.Equal(t, Degraded(MethodError), r)
}

func TestToolAvailableWindowsPackagedPath(t *testing.T) {
	deps := linuxDeps(t, shell.NewFake(), map[string]string{SmartctlWindowsPath: "MZ"})
	assert.True(t, ToolAvailable("windows", deps))

	deps = linuxDeps(t, shell.NewFake(), nil)
	assert.False(t, ToolAvailable("windows", deps))
}
