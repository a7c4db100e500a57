package health

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"

	"github.com/sigreer/diskmon/internal/cache"
	"github.com/sigreer/diskmon/internal/device"
	"github.com/sigreer/diskmon/internal/shell"
)

// Checker resolves and probes the device behind one mount point
type Checker interface {
	Check(ctx context.Context, mountPoint string) Result
}

// Deps are the host facilities shared by every probe
type Deps struct {
	Runner shell.Runner
	Fs     afero.Fs
	Cache  *cache.Cache
	Log    logr.Logger
}

// Strategy pairs a resolver with the probe chain for one platform
type Strategy struct {
	Resolver      device.Resolver
	Chain         *Chain
	ToolAvailable bool
	Log           logr.Logger
}

// NewStrategy selects the resolver and probes for goos once at startup
func NewStrategy(goos string, d Deps) *Strategy {
	if d.Cache == nil {
		d.Cache = cache.New()
	}
	available := ToolAvailable(goos, d)
	log := d.Log.WithName("health")

	if goos == "windows" {
		return &Strategy{
			Resolver:      &device.WMIResolver{Runner: d.Runner},
			ToolAvailable: available,
			Log:           log,
			Chain: &Chain{
				Log: log,
				Probes: []Probe{
					&SmartctlProbe{Runner: d.Runner, Available: available, Invocations: WindowsInvocations, Log: log},
					&PhysicalDiskProbe{Runner: d.Runner, Log: log},
				},
			},
		}
	}

	kernel := &KernelLog{Runner: d.Runner, Cache: d.Cache}
	sysfs := &Sysfs{Fs: d.Fs, Cache: d.Cache}
	return &Strategy{
		Resolver:      &device.MountResolver{Mounts: device.NewMountTable(d.Fs)},
		ToolAvailable: available,
		Log:           log,
		Chain: &Chain{
			Log: log,
			Probes: []Probe{
				&SmartctlProbe{Runner: d.Runner, Available: available, Invocations: LinuxInvocations, Log: log},
				&MMCProbe{Kernel: kernel, Sysfs: sysfs, Log: log},
				&KernelProbe{Runner: d.Runner, Kernel: kernel, Sysfs: sysfs, Log: log},
			},
		},
	}
}

// Check maps mountPoint to a device and runs the chain. An unresolvable
// device yields UNKNOWN with MethodError.
func (s *Strategy) Check(ctx context.Context, mountPoint string) Result {
	h, err := s.Resolver.Resolve(ctx, mountPoint)
	if err != nil {
		s.Log.V(1).Info("Could not resolve device", "mount", mountPoint, "error", err.Error())
		return Degraded(MethodError)
	}
	s.Log.V(1).Info("Resolved device", "mount", mountPoint, "device", h.Path, "family", h.Family, "raid", h.RAID)
	return s.Chain.Run(ctx, h)
}

// ToolAvailable reports whether smartctl can be run on this host. Windows
// also accepts the packaged install path.
func ToolAvailable(goos string, d Deps) bool {
	c := d.Cache
	if c == nil {
		c = cache.New()
	}
	v, _ := c.Remember("tool:"+SmartctlBinary, cache.TTLStatic, func() (any, error) {
		if _, err := d.Runner.LookPath(SmartctlBinary); err == nil {
			return true, nil
		}
		if goos == "windows" && d.Fs != nil {
			if ok, err := afero.Exists(d.Fs, SmartctlWindowsPath); err == nil && ok {
				return true, nil
			}
		}
		return false, nil
	})
	return v.(bool)
}
