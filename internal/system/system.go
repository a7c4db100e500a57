package system

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/spf13/afero"
)

const procCPUInfo = "/proc/cpuinfo"

// Info is the system identity block of a report
type Info struct {
	OSName        string `json:"os_name"`
	OSVersion     string `json:"os_version"`
	Architecture  string `json:"architecture"`
	Hostname      string `json:"hostname"`
	IsVirtualized bool   `json:"is_virtualized"`
}

// String renders "<os> <version> <arch>"
func (i Info) String() string {
	return i.OSName + " " + i.OSVersion + " " + i.Architecture
}

// Collect gathers host identity. Lookup failures fall back to placeholder
// values; a report is still produced.
func Collect(ctx context.Context, fs afero.Fs, goarch string, log logr.Logger) Info {
	info := Info{
		OSName:       "Unknown OS",
		OSVersion:    "Unknown Version",
		Architecture: Architecture(goarch),
		Hostname:     "unknown",
	}

	stat, err := host.InfoWithContext(ctx)
	if err != nil {
		log.V(1).Info("Host info incomplete", "error", err.Error())
	}
	if stat != nil {
		if stat.Hostname != "" {
			info.Hostname = stat.Hostname
		}
		switch {
		case stat.Platform != "":
			info.OSName = stat.Platform
		case stat.OS != "":
			info.OSName = stat.OS
		}
		if stat.PlatformVersion != "" {
			info.OSVersion = stat.PlatformVersion
		}
		info.IsVirtualized = stat.VirtualizationRole == "guest"
	}

	if !info.IsVirtualized && fs != nil {
		info.IsVirtualized = hypervisorFlag(fs)
	}
	return info
}

// Architecture maps GOARCH to the label used in reports
func Architecture(goarch string) string {
	switch goarch {
	case "amd64":
		return "64-bit"
	case "386":
		return "32-bit"
	case "arm64":
		return "ARM64"
	case "arm":
		return "ARM32"
	default:
		return "Unknown"
	}
}

// hypervisorFlag checks the CPU flags the kernel reports under a hypervisor
func hypervisorFlag(fs afero.Fs) bool {
	data, err := afero.ReadFile(fs, procCPUInfo)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "hypervisor")
}
