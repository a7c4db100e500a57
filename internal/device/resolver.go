package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigreer/diskmon/internal/shell"
)

// Resolver maps a volume's mount point to its base device
type Resolver interface {
	Resolve(ctx context.Context, mountPoint string) (Handle, error)
}

// MountResolver resolves through the Unix mount table
type MountResolver struct {
	Mounts *MountTable
}

func (r *MountResolver) Resolve(_ context.Context, mountPoint string) (Handle, error) {
	source, ok, err := r.Mounts.SourceOf(mountPoint)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}
	if !ok {
		return Handle{}, fmt.Errorf("%w: no mount entry for %s", ErrUnresolvable, mountPoint)
	}
	return FromSource(source)
}

// Sentinel lines printed by the storage query script
var windowsQueryFailures = []string{
	"LOGICAL_DISK_NOT_FOUND",
	"PARTITION_NOT_FOUND",
	"PHYSICAL_DISK_NOT_FOUND",
	"ERROR",
}

const physicalDiskQuery = `
try {
    $logicalDisk = Get-WmiObject -Class Win32_LogicalDisk -Filter "DeviceID='%[1]s:'"
    if (-not $logicalDisk) { Write-Output "LOGICAL_DISK_NOT_FOUND"; exit 1 }
    $partition = Get-WmiObject -Query "ASSOCIATORS OF {Win32_LogicalDisk.DeviceID='%[1]s:'} WHERE AssocClass=Win32_LogicalDiskToPartition"
    if (-not $partition) { Write-Output "PARTITION_NOT_FOUND"; exit 1 }
    $physicalDisk = Get-WmiObject -Query "ASSOCIATORS OF {Win32_DiskPartition.DeviceID='$($partition.DeviceID)'} WHERE AssocClass=Win32_DiskDriveToDiskPartition"
    if (-not $physicalDisk) { Write-Output "PHYSICAL_DISK_NOT_FOUND"; exit 1 }
    Write-Output $physicalDisk.Index
} catch {
    Write-Output "ERROR: $($_.Exception.Message)"
    exit 1
}
`

// WMIResolver maps drive letter -> logical disk -> partition -> physical disk
type WMIResolver struct {
	Runner shell.Runner
}

func (r *WMIResolver) Resolve(ctx context.Context, mountPoint string) (Handle, error) {
	if len(mountPoint) < 2 || mountPoint[1] != ':' {
		return Handle{}, fmt.Errorf("%w: %q is not a drive letter", ErrUnresolvable, mountPoint)
	}
	letter := strings.ToUpper(mountPoint[:1])

	out, err := r.Runner.Run(ctx, "powershell", "-NoProfile", "-Command", fmt.Sprintf(physicalDiskQuery, letter))
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}

	text := strings.TrimSpace(string(out.Stdout))
	for _, marker := range windowsQueryFailures {
		if strings.Contains(text, marker) {
			return Handle{}, fmt.Errorf("%w: drive %s: %s", ErrUnresolvable, letter, text)
		}
	}
	if !out.Success() {
		return Handle{}, fmt.Errorf("%w: drive %s: query exited %d", ErrUnresolvable, letter, out.ExitCode)
	}

	index, err := strconv.Atoi(text)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: drive %s: unexpected disk index %q", ErrUnresolvable, letter, text)
	}
	return PhysicalDisk(index), nil
}
