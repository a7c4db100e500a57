package health

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// UdevData is where udev keeps its device database
const UdevData = "/run/udev/data"

// udevProperties reads the E: entries udev recorded for a block device
// (no udevadm process). Returns nil when the database is unavailable.
func (s *Sysfs) udevProperties(name string) map[string]string {
	majMin, err := afero.ReadFile(s.Fs, filepath.Join(SysBlock, name, "dev"))
	if err != nil {
		return nil
	}
	data, err := afero.ReadFile(s.Fs, filepath.Join(UdevData, "b"+strings.TrimSpace(string(majMin))))
	if err != nil {
		return nil
	}

	props := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line, ok := strings.CutPrefix(scanner.Text(), "E:")
		if !ok {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok {
			props[key] = value
		}
	}
	return props
}

// fillFromUdev completes an identity from the udev database. udev
// replaces spaces with underscores in model and vendor strings.
func (s *Sysfs) fillFromUdev(name string, id *SysfsIdentity) {
	if id.Model != "" && id.Serial != "" && id.Vendor != "" {
		return
	}
	props := s.udevProperties(name)
	if props == nil {
		return
	}

	if id.Serial == "" {
		id.Serial = firstNonEmpty(props["ID_SERIAL_SHORT"], props["ID_SCSI_SERIAL"])
	}
	if id.Model == "" {
		id.Model = strings.ReplaceAll(props["ID_MODEL"], "_", " ")
	}
	if id.Vendor == "" {
		id.Vendor = strings.ReplaceAll(props["ID_VENDOR"], "_", " ")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
