package volume

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/shirou/gopsutil/v4/disk"
)

// Volume is a mounted filesystem considered for monitoring
type Volume struct {
	MountPoint  string `json:"mount_point"`
	Device      string `json:"device"`
	DisplayName string `json:"display_name"`
	FileSystem  string `json:"file_system"`
	TotalBytes  uint64 `json:"total_bytes"`
	// AvailableBytes is the space usable by unprivileged users
	AvailableBytes uint64 `json:"available_bytes"`
}

// FreePercent returns available/total as a percentage clamped to [0, 100].
// A zero-capacity volume reports 0.
func (v Volume) FreePercent() float64 {
	if v.TotalBytes == 0 {
		return 0
	}
	pct := float64(v.AvailableBytes) / float64(v.TotalBytes) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// DriveLetter returns "C:" for a Windows style mount point, or "".
func (v Volume) DriveLetter() string {
	if len(v.MountPoint) >= 2 && v.MountPoint[1] == ':' {
		return strings.ToUpper(v.MountPoint[:2])
	}
	return ""
}

// DisplayName returns the OS-appropriate label for a mount point
func DisplayName(mountPoint, goos string) string {
	if goos == "windows" && len(mountPoint) >= 2 && mountPoint[1] == ':' {
		return "Drive " + strings.ToUpper(mountPoint[:2])
	}
	return mountPoint
}

// Enumerator lists mounted volumes with their capacities
type Enumerator struct {
	GOOS string
	Log  logr.Logger
}

// Enumerate returns every mounted physical volume in OS order. Volumes whose
// usage cannot be read are returned with zero capacity so Filter drops them.
func (e *Enumerator) Enumerate(ctx context.Context) ([]Volume, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	vols := make([]Volume, 0, len(parts))
	for _, p := range parts {
		v := Volume{
			MountPoint:  p.Mountpoint,
			Device:      p.Device,
			DisplayName: DisplayName(p.Mountpoint, e.GOOS),
			FileSystem:  p.Fstype,
		}
		if v.FileSystem == "" {
			v.FileSystem = "Unknown"
		}

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			e.Log.V(1).Info("Skipping usage for volume", "mount", p.Mountpoint, "error", err.Error())
		} else {
			v.TotalBytes = usage.Total
			v.AvailableBytes = usage.Free
		}

		e.Log.V(1).Info("Found volume", "mount", v.MountPoint, "device", v.Device,
			"total", v.TotalBytes, "available", v.AvailableBytes)
		vols = append(vols, v)
	}
	return vols, nil
}
