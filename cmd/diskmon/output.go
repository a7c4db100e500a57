package main

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sigreer/diskmon/internal/health"
	"github.com/sigreer/diskmon/internal/report"
	"github.com/sigreer/diskmon/internal/system"
)

var (
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorBlue    = lipgloss.Color("#6272F4")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorGray    = lipgloss.Color("#6272A4")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	nameStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	fsStyle    = lipgloss.NewStyle().Foreground(colorMagenta)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	goodStyle  = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	noteStyle  = lipgloss.NewStyle().Foreground(colorYellow)
	critStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(colorGray)
)

// freeBand picks the colour and icon for a free-space percentage
func freeBand(pct float64) (lipgloss.Style, string) {
	switch {
	case pct < 20:
		return critStyle, "!"
	case pct < 50:
		return warnStyle, "*"
	default:
		return goodStyle, "OK"
	}
}

func methodTag(m health.Method) string {
	switch m {
	case health.MethodNativeTool:
		return okStyle.Render("[smartctl]")
	case health.MethodOSNativeAPI:
		return okStyle.Render("[storage api]")
	case health.MethodKernelFallback:
		return noteStyle.Render("[kernel fallback]")
	case health.MethodDisabled:
		return dimStyle.Render("[health check disabled]")
	case health.MethodTimeout:
		return critStyle.Render("[timed out]")
	default:
		return critStyle.Render("[unknown method]")
	}
}

func statusTag(s health.Status) string {
	switch s {
	case health.StatusOK:
		return "(SMART: " + okStyle.Render("OK") + ")"
	case health.StatusUnknown:
		return dimStyle.Render("(SMART: N/A)")
	default:
		return "(SMART: " + critStyle.Render(string(s)) + ")"
	}
}

func printSystem(w io.Writer, info system.Info, toolAvailable bool) {
	fmt.Fprintf(w, "%s %s %s %s (%s)\n",
		titleStyle.Render("System:"),
		goodStyle.UnsetBold().Render(info.OSName),
		goodStyle.UnsetBold().Render(info.OSVersion),
		goodStyle.UnsetBold().Render(info.Architecture),
		nameStyle.Render(info.Hostname))
	if toolAvailable {
		fmt.Fprintln(w, dimStyle.Render("smartmontools detected - using smartctl for enhanced disk health monitoring"))
	} else {
		fmt.Fprintln(w, dimStyle.Render("smartmontools not detected - using fallback methods"))
	}
}

func printDisks(w io.Writer, reports []report.DiskReport, virtualized bool) {
	fmt.Fprintf(w, "%s %s disk(s):\n", titleStyle.Render("Monitoring"), goodStyle.Render(fmt.Sprint(len(reports))))

	for _, r := range reports {
		style, icon := freeBand(r.FreeSpacePercent)
		raid := ""
		if r.RAID {
			raid = dimStyle.Render(" (RAID)")
		}
		fmt.Fprintf(w, "  %s %s: %s%% free (%s available, %s filesystem) %s%s %s\n",
			style.Render(icon),
			nameStyle.Render(r.DisplayName),
			style.Render(fmt.Sprintf("%.2f", r.FreeSpacePercent)),
			humanize.IBytes(r.AvailableBytes),
			fsStyle.Render(r.FileSystem),
			statusTag(r.Status),
			raid,
			methodTag(r.Method))
		for _, a := range r.Advisories(virtualized) {
			fmt.Fprintf(w, "    %s\n", noteStyle.Render("WARNING: "+a))
		}
	}

	summary := report.Summarize(reports, 0, virtualized)
	for _, warning := range report.GlobalWarnings(summary) {
		fmt.Fprintln(w, critStyle.Render("WARNING: "+warning))
	}
}

func printSmartDetails(w io.Writer, reports []report.DiskReport) {
	fmt.Fprintf(w, "\n%s\n", titleStyle.Render("SMART Status Details:"))
	for _, r := range reports {
		status := string(r.Status)
		if r.Status == health.StatusOK {
			status = goodStyle.Render(status)
		} else {
			status = critStyle.Render(status)
		}
		fmt.Fprintf(w, "  %s: %s %s\n", nameStyle.Render(r.DisplayName), status, methodTag(r.Method))
		fmt.Fprintf(w, "    Serial: %s\n", dimStyle.Render(orNA(r.Serial)))
		fmt.Fprintf(w, "    Brand: %s\n", dimStyle.Render(orNA(r.Brand)))
		fmt.Fprintf(w, "    Model: %s\n", dimStyle.Render(orNA(r.Model)))
		if r.PowerOnHours != nil {
			fmt.Fprintf(w, "    Power On Hours: %s\n", commaUint(*r.PowerOnHours))
		}
		if r.Temperature != nil {
			fmt.Fprintf(w, "    Temperature: %d C\n", *r.Temperature)
		}
		if r.RAID {
			fmt.Fprintf(w, "    %s\n", dimStyle.Render("(RAID)"))
		}
		for _, warning := range attributeWarnings(r.Result) {
			fmt.Fprintf(w, "    %s\n", critStyle.Render("WARNING: "+warning))
		}
	}
}

func attributeWarnings(r health.Result) []string {
	var out []string
	if r.ReallocatedSectors != nil && *r.ReallocatedSectors > 0 {
		out = append(out, "Reallocated sectors detected!")
	}
	if r.PendingSectors != nil && *r.PendingSectors > 0 {
		out = append(out, "Pending sectors detected!")
	}
	if r.UncorrectableSectors != nil && *r.UncorrectableSectors > 0 {
		out = append(out, "Uncorrectable sectors detected!")
	}
	if r.Hot() {
		out = append(out, "High temperature!")
	}
	return out
}

func printDecision(w io.Writer, d report.Decision, reports []report.DiskReport, threshold float64) {
	if d.Forced {
		fmt.Fprintf(w, "\n%s\n", warnStyle.Render("Forced mail mode: Sending comprehensive system report..."))
	}

	if len(d.Problems) > 0 {
		fmt.Fprintf(w, "\n%s %s disk(s):\n",
			critStyle.Render("Alerts triggered for"), critStyle.Render(fmt.Sprint(len(d.Problems))))
		for _, p := range d.Problems {
			fmt.Fprintf(w, "  %s %s: %s\n",
				critStyle.Render("!"), nameStyle.Render(p.Name), critStyle.Render(strings.Join(p.Reasons, ", ")))
		}
		return
	}
	if d.Forced {
		return
	}

	if report.Summarize(reports, threshold, false).Unknown > 0 {
		fmt.Fprintf(w, "\n%s (above %.1f%% threshold, but health status is unknown for one or more disks).\n",
			warnStyle.Render("All disks are above threshold"), threshold)
		return
	}
	fmt.Fprintf(w, "\n%s (above %.1f%% threshold and SMART status OK).\n",
		goodStyle.Render("All disks are healthy"), threshold)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// commaUint groups digits over the full uint64 range
func commaUint(v uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(v))
}
