package health

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/sigreer/diskmon/internal/device"
	"github.com/sigreer/diskmon/internal/shell"
)

const (
	// SmartctlBinary is looked up on PATH
	SmartctlBinary = "smartctl"
	// SmartctlWindowsPath is the default smartmontools install location
	SmartctlWindowsPath = `C:\Program Files\smartmontools\bin\smartctl.exe`

	// smartctl sets bit 2 when some SMART or ATA command failed but
	// identity data was still printed
	smartctlPartialExit = 4
)

// Invocation is one binary + argument variant to try
type Invocation struct {
	Binary string
	Args   []string
}

// LinuxInvocations returns the argument variants tried for a device family
func LinuxInvocations(h device.Handle) []Invocation {
	base := []string{"-H", "-i", "-A"}
	variant := func(extra ...string) Invocation {
		args := append(append(append([]string{}, base...), extra...), h.Path)
		return Invocation{Binary: SmartctlBinary, Args: args}
	}

	if h.Family == device.FamilyNVMe {
		return []Invocation{
			variant(),
			variant("-d", "nvme"),
		}
	}
	return []Invocation{
		variant(),
		variant("-d", "auto"),
		variant("-d", "sat"),
	}
}

// WindowsInvocations tries the PATH binary before the packaged install,
// first with default device detection and then with -d auto
func WindowsInvocations(h device.Handle) []Invocation {
	plain := []string{"-H", "-i", "-A", h.Path}
	auto := []string{"-H", "-i", "-A", "-d", "auto", h.Path}
	return []Invocation{
		{Binary: SmartctlBinary, Args: plain},
		{Binary: SmartctlWindowsPath, Args: plain},
		{Binary: SmartctlBinary, Args: auto},
		{Binary: SmartctlWindowsPath, Args: auto},
	}
}

// SmartctlProbe reads health from smartmontools
type SmartctlProbe struct {
	Runner      shell.Runner
	Available   bool
	Invocations func(h device.Handle) []Invocation
	Log         logr.Logger
}

func (p *SmartctlProbe) Name() string   { return "smartctl" }
func (p *SmartctlProbe) Method() Method { return MethodNativeTool }

func (p *SmartctlProbe) Applies(h device.Handle) bool {
	return p.Available
}

func (p *SmartctlProbe) Probe(ctx context.Context, h device.Handle) (Result, bool) {
	for _, inv := range p.Invocations(h) {
		if ctx.Err() != nil {
			return Result{}, false
		}

		p.Log.V(1).Info("Trying smartctl", "binary", inv.Binary, "args", inv.Args)
		out, err := p.Runner.Run(ctx, inv.Binary, inv.Args...)
		if err != nil {
			p.Log.V(1).Info("smartctl did not run", "binary", inv.Binary, "error", err.Error())
			continue
		}
		if out.ExitCode != 0 && out.ExitCode != smartctlPartialExit {
			p.Log.V(1).Info("smartctl rejected device", "args", inv.Args, "exit", out.ExitCode)
			continue
		}

		if r, ok := ParseSmartctl(string(out.Stdout)); ok {
			return r, true
		}
	}
	return Result{}, false
}

// Attribute names read from the ATA attribute table
const (
	attrPowerOnHours  = "Power_On_Hours"
	attrReallocated   = "Reallocated_Sector_Ct"
	attrPending       = "Current_Pending_Sector"
	attrUncorrectable = "Offline_Uncorrectable"
	attrTemperature   = "Temperature_Celsius"
)

// ParseSmartctl extracts health, identity and attributes from smartctl text
// output. It is conclusive when any of those was found. Readable data with
// no explicit health line is treated as OK.
func ParseSmartctl(output string) (Result, bool) {
	var r Result

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.Contains(line, "SMART overall-health self-assessment test result:"):
			switch {
			case strings.Contains(line, "PASSED"):
				r.Status = StatusOK
			case strings.Contains(line, "FAILED"):
				r.Status = StatusFailing
			default:
				r.Status = StatusWarning
			}
			continue
		case strings.Contains(line, "SMART Health Status:"):
			if strings.Contains(line, "OK") {
				r.Status = StatusOK
			} else {
				r.Status = StatusWarning
			}
			continue
		}

		if key, value, ok := strings.Cut(line, ":"); ok {
			value = strings.TrimSpace(value)
			switch key {
			case "Device Model", "Model Number", "Product", "Device":
				if r.Model == "" {
					r.Model = value
				}
			case "Serial Number", "Serial number":
				r.Serial = value
			case "Vendor":
				r.Brand = value
			case "Power On Hours":
				r.PowerOnHours = parseCount(value)
			case "Media and Data Integrity Errors":
				r.UncorrectableSectors = parseCount(value)
			case "Temperature", "Current Drive Temperature":
				r.Temperature = parseTemp(value)
			}
		}

		// rows start with a numeric ID so they never collide with the keys above
		parseAttributeRow(line, &r)
	}

	conclusive := r.Status != "" || r.Model != "" || r.Serial != "" || r.HasAttributes()
	if conclusive && r.Status == "" {
		r.Status = StatusOK
	}
	return r, conclusive
}

// parseAttributeRow handles one row of the attribute table:
// ID# ATTRIBUTE_NAME FLAG VALUE WORST THRESH TYPE UPDATED WHEN_FAILED RAW_VALUE
func parseAttributeRow(line string, r *Result) {
	fields := strings.Fields(line)
	if len(fields) < 10 {
		return
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return
	}

	raw := fields[9]
	switch fields[1] {
	case attrPowerOnHours:
		r.PowerOnHours = parseCount(raw)
	case attrReallocated:
		r.ReallocatedSectors = parseCount(raw)
	case attrPending:
		r.PendingSectors = parseCount(raw)
	case attrUncorrectable:
		r.UncorrectableSectors = parseCount(raw)
	case attrTemperature:
		r.Temperature = parseTemp(raw)
	}
}

// parseCount reads the leading integer of values like "1,234" or "12345h+32m"
func parseCount(s string) *uint64 {
	digits := leadingDigits(strings.ReplaceAll(s, ",", ""))
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseTemp reads values like "36", "36 Celsius" or "-5 C"
func parseTemp(s string) *int64 {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	digits := leadingDigits(strings.TrimPrefix(s, "-"))
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	if neg {
		v = -v
	}
	return &v
}

func leadingDigits(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
