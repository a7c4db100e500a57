package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/sigreer/diskmon/internal/system"
)

const (
	reportTimeLayout = "02-01-2006 15:04:05"
	bytesPerGB       = 1024 * 1024 * 1024
)

// Header carries the run context rendered above the per-disk blocks
type Header struct {
	FriendlyName     string
	System           system.Info
	Time             time.Time
	Forced           bool
	Debug            bool
	ToolAvailable    bool
	ThresholdPercent float64
}

// DisplayName is the friendly name, or the hostname when none is configured
func (h Header) DisplayName() string {
	if h.FriendlyName != "" {
		return h.FriendlyName
	}
	return h.System.Hostname
}

// Mode describes why the report was produced
func (h Header) Mode() string {
	switch {
	case h.Forced:
		return "Forced Report"
	case h.Debug:
		return "Debug Mode"
	default:
		return "Normal Scan"
	}
}

// Subject builds the mail subject line
func Subject(h Header) string {
	s := fmt.Sprintf("System Disk Report - %s (%s)", h.DisplayName(), h.System.String())
	if h.Forced {
		return "[FORCED] " + s
	}
	return s
}

type diskView struct {
	Index      int
	Indicator  Indicator
	Disk       DiskReport
	TotalGB    float64
	UsedGB     float64
	AvailGB    float64
	Advisories []string
}

type bodyView struct {
	Header
	Summary  Summary
	Warnings []string
	Disks    []diskView
}

var funcs = template.FuncMap{
	"f2":       func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"g":        func(v float64) string { return fmt.Sprintf("%g", v) },
	"u64":      func(v *uint64) uint64 { return *v },
	"i64":      func(v *int64) int64 { return *v },
	"positive": func(v *uint64) bool { return v != nil && *v > 0 },
}

var bodyTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`<html><body><pre style="font-family: monospace;">
System Disk Report

Device: {{.DisplayName}} ({{.System.Hostname}})
System: {{.System.String}} {{if .System.IsVirtualized}}(Virtualized){{end}}
Hostname: {{.System.Hostname}}
Report Time: {{.TimeText}}
Mode: {{.Mode}}
SMART Tools: {{if .ToolAvailable}}smartmontools detected - enhanced disk health monitoring{{else}}smartmontools not detected - using fallback methods{{end}}
Virtualization: {{if .System.IsVirtualized}}Yes - Running in virtualized environment{{else}}No - Running on physical hardware{{end}}

Disk Summary:
 - Total Disks: {{.Summary.Total}}
 - Low Space (&lt;{{g .ThresholdPercent}}%): {{.Summary.LowSpace}}
 - SMART Failing: {{.Summary.Failing}}
 - SMART Unknown: {{.Summary.Unknown}}
{{range .Warnings}}
WARNING: {{.}}
{{end}}
{{range .Disks}}<b>Disk {{.Index}}: [{{.Indicator}}] {{.Disk.DisplayName}}</b>
<b> - Mount Point:</b> {{.Disk.MountPoint}}
<b> - File System:</b> {{.Disk.FileSystem}}
<b> - Total Space:</b> {{f2 .TotalGB}} GB
<b> - Used Space:</b> {{f2 .UsedGB}} GB
<b> - Available Space:</b> {{f2 .AvailGB}} GB
<b> - Free Space:</b> {{f2 .Disk.FreeSpacePercent}}%
<b> - Health Check Method:</b> {{.Disk.Method}}
 - SMART Status: {{.Disk.Status}}
{{with .Disk.PowerOnHours}} - Power On Hours: {{u64 .}}
{{end}}{{with .Disk.ReallocatedSectors}} - Reallocated Sectors: {{u64 .}}
{{if positive .}}   * WARNING: Reallocated sectors detected!
{{end}}{{end}}{{with .Disk.PendingSectors}} - Pending Sectors: {{u64 .}}
{{if positive .}}   * WARNING: Pending sectors detected!
{{end}}{{end}}{{with .Disk.UncorrectableSectors}} - Uncorrectable Sectors: {{u64 .}}
{{if positive .}}   * WARNING: Uncorrectable sectors detected!
{{end}}{{end}}{{if .Disk.Temperature}} - Temperature: {{i64 .Disk.Temperature}} C
{{if .Disk.Hot}}   * WARNING: High temperature!
{{end}}{{end}}{{with .Disk.Serial}} - Serial Number: {{.}}
{{end}}{{with .Disk.Brand}} - Brand: {{.}}
{{end}}{{with .Disk.Model}} - Model: {{.}}
{{end}}{{if .Disk.RAID}} - RAID: Yes (SMART status may not be accurate)
{{end}}{{range .Advisories}}   * WARNING: {{.}}
{{end}}
{{end}}</pre></body></html>`))

// TimeText renders the report time in day-first local form
func (v bodyView) TimeText() string {
	return v.Time.Local().Format(reportTimeLayout)
}

// HTML renders the report body sent to operators
func HTML(h Header, reports []DiskReport) (string, error) {
	summary := Summarize(reports, h.ThresholdPercent, h.System.IsVirtualized)
	view := bodyView{
		Header:   h,
		Summary:  summary,
		Warnings: GlobalWarnings(summary),
		Disks:    make([]diskView, len(reports)),
	}
	for i, r := range reports {
		total := float64(r.TotalBytes) / bytesPerGB
		avail := float64(r.AvailableBytes) / bytesPerGB
		view.Disks[i] = diskView{
			Index:      i + 1,
			Indicator:  r.Indicator(h.ThresholdPercent),
			Disk:       r,
			TotalGB:    total,
			UsedGB:     total - avail,
			AvailGB:    avail,
			Advisories: r.Advisories(h.System.IsVirtualized),
		}
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
