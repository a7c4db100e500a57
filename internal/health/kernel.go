package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/sigreer/diskmon/internal/cache"
	"github.com/sigreer/diskmon/internal/device"
	"github.com/sigreer/diskmon/internal/shell"
)

// mmcLogWindow is how many of the newest kernel log lines the MMC probe scans
const mmcLogWindow = 1000

// DmesgTimeout bounds the shared dmesg read independently of any one volume
const DmesgTimeout = 30 * time.Second

var (
	mmcErrorTokens     = []string{"error", "fail", "timeout", "crc"}
	genericErrorTokens = []string{"error", "fail", "warning", "i/o error"}
)

// KernelLog reads dmesg once per run and shares it between probes
type KernelLog struct {
	Runner shell.Runner
	Cache  *cache.Cache
	// Timeout for the dmesg read, DmesgTimeout when zero
	Timeout time.Duration
}

// Lines returns the kernel ring buffer, oldest first. The read is shared by
// every caller: ctx only bounds how long this caller waits for it.
func (k *KernelLog) Lines(ctx context.Context) ([]string, error) {
	timeout := k.Timeout
	if timeout <= 0 {
		timeout = DmesgTimeout
	}
	v, err := k.Cache.RememberContext(ctx, cache.KeyKernelLog, cache.TTLDynamic, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		out, err := k.Runner.Run(readCtx, "dmesg")
		if err != nil {
			return nil, err
		}
		if !out.Success() {
			return nil, fmt.Errorf("dmesg exited %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
		}
		return strings.Split(strings.TrimRight(string(out.Stdout), "\n"), "\n"), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// mentions reports whether any line names dev together with one of tokens
func mentions(lines []string, dev string, tokens []string) bool {
	dev = strings.ToLower(dev)
	for _, line := range lines {
		l := strings.ToLower(line)
		if !strings.Contains(l, dev) {
			continue
		}
		for _, tok := range tokens {
			if strings.Contains(l, tok) {
				return true
			}
		}
	}
	return false
}

// MMCProbe classifies SD/MMC cards from recent kernel log errors and reads
// card identity from sysfs
type MMCProbe struct {
	Kernel *KernelLog
	Sysfs  *Sysfs
	Log    logr.Logger
}

func (p *MMCProbe) Name() string   { return "mmc-kernel" }
func (p *MMCProbe) Method() Method { return MethodKernelFallback }

func (p *MMCProbe) Applies(h device.Handle) bool {
	return h.Family == device.FamilyMMC
}

func (p *MMCProbe) Probe(ctx context.Context, h device.Handle) (Result, bool) {
	var r Result
	if p.Sysfs.HasDevice(h.Name) {
		id := p.Sysfs.MMC(h.Name)
		r.Model, r.Serial, r.Brand = id.Name, id.Serial, id.Brand
	}

	lines, err := p.Kernel.Lines(ctx)
	if err != nil {
		p.Log.V(1).Info("Kernel log unavailable", "device", h.Name, "error", err.Error())
		return r, false
	}

	if len(lines) > mmcLogWindow {
		lines = lines[len(lines)-mmcLogWindow:]
	}
	if mentions(lines, h.Name, mmcErrorTokens) {
		r.Status = StatusWarning
	} else {
		r.Status = StatusOK
	}
	return r, true
}

// KernelProbe is the generic fallback for any block device with a sysfs
// entry. It always concludes once the entry exists.
type KernelProbe struct {
	Runner shell.Runner
	Kernel *KernelLog
	Sysfs  *Sysfs
	Log    logr.Logger
}

func (p *KernelProbe) Name() string   { return "kernel" }
func (p *KernelProbe) Method() Method { return MethodKernelFallback }

func (p *KernelProbe) Applies(h device.Handle) bool {
	return h.Family != device.FamilyWinPD
}

func (p *KernelProbe) Probe(ctx context.Context, h device.Handle) (Result, bool) {
	if !p.Sysfs.HasDevice(h.Name) {
		p.Log.V(1).Info("No sysfs entry", "device", h.Name)
		return Result{}, false
	}

	id := p.Sysfs.Identity(h.Name)
	r := Result{Model: id.Model, Serial: id.Serial, Brand: id.Vendor}

	if failing, ok := p.Sysfs.SmartAttributesFailing(h.Name); ok && failing {
		r.Status = StatusFailing
		return r, true
	}

	if n, ok := p.Sysfs.IOErrorCount(h.Name); ok {
		r.Status = countStatus(n)
		return r, true
	}
	if n, ok := p.Sysfs.DiskstatsInFlight(h.Name); ok {
		r.Status = countStatus(n)
		return r, true
	}

	if lines, err := p.Kernel.Lines(ctx); err == nil && mentions(lines, h.Name, genericErrorTokens) {
		r.Status = StatusWarning
		return r, true
	}

	if p.fsckReportsErrors(ctx, h) {
		r.Status = StatusWarning
		return r, true
	}

	r.Status = StatusOK
	return r, true
}

// fsckReportsErrors runs a read-only check of the mounted partition
func (p *KernelProbe) fsckReportsErrors(ctx context.Context, h device.Handle) bool {
	out, err := p.Runner.Run(ctx, "fsck", "-n", h.Source)
	if err != nil || out.Success() {
		return false
	}
	stderr := string(out.Stderr)
	return strings.Contains(stderr, "error") || strings.Contains(stderr, "corruption")
}

func countStatus(n uint64) Status {
	if n > 0 {
		return StatusWarning
	}
	return StatusOK
}
