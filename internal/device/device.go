package device

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnresolvable means a volume could not be mapped to a block device.
// It degrades that volume's health result and never aborts a run.
var ErrUnresolvable = errors.New("device unresolvable")

// Family groups devices that share partition naming and probe variants
type Family string

const (
	FamilyMMC   Family = "mmc"
	FamilyNVMe  Family = "nvme"
	FamilySATA  Family = "sata"
	FamilyOther Family = "other"
	FamilyWinPD Family = "windows-physical-disk"
)

// Handle is a normalized reference to the physical device behind a volume
type Handle struct {
	// Source is the device as it appears in the mount table, e.g. /dev/sda1
	Source string
	// Path is the base device path handed to diagnostic tools, e.g. /dev/sda
	Path string
	// Name is the short base name used for sysfs and kernel log lookups
	Name   string
	Family Family
	// RAID is advisory only
	RAID bool
	// DiskIndex is the Windows physical disk number, -1 elsewhere
	DiskIndex int
}

var mmcPartition = regexp.MustCompile(`^(mmcblk\d+)(p\d+)?$`)

// FamilyOf classifies a short device name
func FamilyOf(name string) Family {
	switch {
	case strings.HasPrefix(name, "mmcblk"):
		return FamilyMMC
	case strings.HasPrefix(name, "nvme"):
		return FamilyNVMe
	case strings.HasPrefix(name, "sd"), strings.HasPrefix(name, "hd"):
		return FamilySATA
	default:
		return FamilyOther
	}
}

// BaseName strips the partition suffix from a short device name:
// mmcblk0p1 -> mmcblk0, nvme0n1p2 -> nvme0n1, sda1 -> sda.
// Unrecognized names are returned unchanged.
func BaseName(name string) string {
	switch FamilyOf(name) {
	case FamilyMMC:
		if m := mmcPartition.FindStringSubmatch(name); m != nil {
			return m[1]
		}
		return name
	case FamilyNVMe:
		base, _, _ := strings.Cut(name, "p")
		return base
	case FamilySATA:
		end := 0
		for end < len(name) && isLetter(name[end]) {
			end++
		}
		return name[:end]
	default:
		return name
	}
}

// IsRAID reports whether a device path carries a md or device-mapper marker
func IsRAID(source string) bool {
	return strings.Contains(source, "md") || strings.Contains(source, "dm-")
}

// FromSource builds a handle from a mount source such as /dev/nvme0n1p2
func FromSource(source string) (Handle, error) {
	if !strings.HasPrefix(source, "/dev/") {
		return Handle{}, fmt.Errorf("%w: %q is not a device path", ErrUnresolvable, source)
	}

	short := source[strings.LastIndex(source, "/")+1:]
	if short == "" {
		return Handle{}, fmt.Errorf("%w: empty device name in %q", ErrUnresolvable, source)
	}

	h := Handle{
		Source:    source,
		Family:    FamilyOf(short),
		RAID:      IsRAID(source),
		DiskIndex: -1,
	}
	if h.Family == FamilyOther {
		// keep the full path, e.g. /dev/mapper/vg-root
		h.Path = source
		h.Name = short
	} else {
		h.Name = BaseName(short)
		h.Path = "/dev/" + h.Name
	}
	return h, nil
}

// PhysicalDisk builds a handle for a Windows physical disk index
func PhysicalDisk(index int) Handle {
	name := fmt.Sprintf("pd%d", index)
	return Handle{
		Source:    fmt.Sprintf(`\\.\PhysicalDrive%d`, index),
		Path:      "/dev/" + name,
		Name:      name,
		Family:    FamilyWinPD,
		DiskIndex: index,
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
