package device

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ProcMounts is the live mount table on Linux
const ProcMounts = "/proc/mounts"

// MountEntry is one line of the mount table
type MountEntry struct {
	Source     string
	MountPoint string
	FSType     string
}

// MountTable reads mount entries through an afero filesystem
type MountTable struct {
	Fs   afero.Fs
	Path string
}

// NewMountTable returns a table over the host's /proc/mounts
func NewMountTable(fs afero.Fs) *MountTable {
	return &MountTable{Fs: fs, Path: ProcMounts}
}

// Entries parses the table. Octal escapes such as \040 are decoded.
func (m *MountTable) Entries() ([]MountEntry, error) {
	data, err := afero.ReadFile(m.Fs, m.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}

	var entries []MountEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		e := MountEntry{
			Source:     unescapeMount(fields[0]),
			MountPoint: unescapeMount(fields[1]),
		}
		if len(fields) > 2 {
			e.FSType = fields[2]
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// SourceOf returns the source of the first entry mounted at mountPoint
func (m *MountTable) SourceOf(mountPoint string) (string, bool, error) {
	entries, err := m.Entries()
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.MountPoint == mountPoint {
			return e.Source, true, nil
		}
	}
	return "", false, nil
}

func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
