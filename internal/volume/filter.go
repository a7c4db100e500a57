package volume

import (
	"path"
	"strings"
)

var skippedPrefixes = map[bool][]string{
	// windows: network shares and floppy letters
	true:  {`\\`, "A:", "B:"},
	false: {"/media/", "/mnt/", "/run/media/"},
}

// Filter drops removable, network and zero-capacity volumes, then applies the
// exclusion list. It returns the candidates in input order and the exclusion
// entries that matched no volume. Blank exclusion entries are ignored.
func Filter(raw []Volume, excluded []string, goos string) ([]Volume, []string) {
	windows := goos == "windows"
	found := make([]bool, len(excluded))

	candidates := make([]Volume, 0, len(raw))
	for _, v := range raw {
		if hasAnyPrefix(v.MountPoint, skippedPrefixes[windows]) {
			continue
		}
		if v.TotalBytes == 0 {
			continue
		}

		skip := false
		for i, ex := range excluded {
			ex = strings.TrimSpace(ex)
			if ex == "" {
				continue
			}
			if Excludes(v, ex, windows) {
				found[i] = true
				skip = true
			}
		}
		if !skip {
			candidates = append(candidates, v)
		}
	}

	var unmatched []string
	for i, ex := range excluded {
		if !found[i] && strings.TrimSpace(ex) != "" {
			unmatched = append(unmatched, ex)
		}
	}
	return candidates, unmatched
}

// Excludes reports whether the exclusion entry ex names v. Drive letter
// platforms use a case-insensitive substring test on the display name;
// device path platforms need an exact device name.
func Excludes(v Volume, ex string, windows bool) bool {
	if windows {
		return strings.Contains(strings.ToUpper(v.DisplayName), strings.ToUpper(ex))
	}
	return v.Device == ex || path.Base(v.Device) == ex
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
