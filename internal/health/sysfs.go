package health

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/sigreer/diskmon/internal/cache"
)

const (
	SysBlock      = "/sys/block"
	ProcDiskstats = "/proc/diskstats"
)

// Sysfs reads block device attributes (no process spawning)
type Sysfs struct {
	Fs    afero.Fs
	Cache *cache.Cache
}

// SysfsIdentity is what the kernel exposes about a device's identity
type SysfsIdentity struct {
	Model  string
	Serial string
	Vendor string
}

// MMCIdentity is decoded from the MMC/SD card registers
type MMCIdentity struct {
	Name   string
	Serial string
	Brand  string
}

// mmcManufacturers maps SD/MMC manfid values to brand names
var mmcManufacturers = map[uint64]string{
	0x01: "Panasonic",
	0x02: "Toshiba",
	0x03: "SanDisk",
	0x13: "Micron",
	0x15: "Samsung",
	0x27: "Phison",
	0x28: "Lexar",
	0x41: "Kingston",
	0x6f: "STMicroelectronics",
	0x74: "Transcend",
	0x76: "Patriot",
}

func (s *Sysfs) deviceDir(name string) string {
	return filepath.Join(SysBlock, name, "device")
}

// HasDevice reports whether /sys/block/<name>/device exists
func (s *Sysfs) HasDevice(name string) bool {
	ok, err := afero.DirExists(s.Fs, s.deviceDir(name))
	return err == nil && ok
}

// readAttr returns the trimmed content of a device attribute
func (s *Sysfs) readAttr(name, attr string) (string, bool) {
	data, err := afero.ReadFile(s.Fs, filepath.Join(s.deviceDir(name), attr))
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	return v, v != ""
}

// Identity gathers model, serial and vendor for a block device
func (s *Sysfs) Identity(name string) SysfsIdentity {
	load := func() (any, error) {
		var id SysfsIdentity
		id.Model, _ = s.readAttr(name, "model")
		id.Serial, _ = s.readAttr(name, "serial")
		id.Vendor, _ = s.readAttr(name, "vendor")
		s.fillFromUdev(name, &id)
		return id, nil
	}
	if s.Cache == nil {
		v, _ := load()
		return v.(SysfsIdentity)
	}
	v, _ := s.Cache.Remember("sysfs:identity:"+name, cache.TTLSlow, load)
	return v.(SysfsIdentity)
}

// MMC decodes name, serial (CID bits 55:24) and manufacturer of a card
func (s *Sysfs) MMC(name string) MMCIdentity {
	var id MMCIdentity
	id.Name, _ = s.readAttr(name, "name")

	if cid, ok := s.readAttr(name, "cid"); ok && len(cid) >= 32 {
		if serial, err := strconv.ParseUint(cid[18:26], 16, 32); err == nil {
			id.Serial = fmt.Sprintf("%08X", serial)
		}
	}

	if manfid, ok := s.readAttr(name, "manfid"); ok {
		// the kernel prints 0x%06x
		if v, err := strconv.ParseUint(manfid, 0, 32); err == nil {
			if brand, known := mmcManufacturers[v]; known {
				id.Brand = brand
			} else {
				id.Brand = fmt.Sprintf("Unknown (0x%02X)", v)
			}
		}
	}
	return id
}

// SmartAttributesFailing scans device/smart_attributes for failure markers.
// ok is false when the file does not exist.
func (s *Sysfs) SmartAttributesFailing(name string) (failing, ok bool) {
	data, err := afero.ReadFile(s.Fs, filepath.Join(s.deviceDir(name), "smart_attributes"))
	if err != nil {
		return false, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, "FAILING_NOW") || strings.Contains(line, "Pre-fail") {
			return true, true
		}
	}
	return false, true
}

// IOErrorCount returns the SCSI layer's per-device error counter
// (device/ioerr_cnt, printed in hex)
func (s *Sysfs) IOErrorCount(name string) (uint64, bool) {
	v, ok := s.readAttr(name, "ioerr_cnt")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DiskstatsInFlight returns column 12 of /proc/diskstats for name, the
// number of I/Os currently in progress
func (s *Sysfs) DiskstatsInFlight(name string) (uint64, bool) {
	data, err := afero.ReadFile(s.Fs, ProcDiskstats)
	if err != nil {
		return 0, false
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 14 || fields[2] != name {
			continue
		}
		n, err := strconv.ParseUint(fields[11], 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
