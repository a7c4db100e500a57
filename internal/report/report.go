package report

import (
	"fmt"

	"github.com/sigreer/diskmon/internal/health"
	"github.com/sigreer/diskmon/internal/volume"
)

// Indicator is the per-volume status shown in reports
type Indicator string

const (
	IndicatorLowSpace     Indicator = "LOW SPACE"
	IndicatorSmartFailing Indicator = "SMART FAILING"
	IndicatorSmartWarning Indicator = "SMART WARNING"
	IndicatorOK           Indicator = "OK"
)

// Advisory texts attached to individual volumes
const (
	AdvisoryFallback    = "Health info from fallback method; may be incomplete or unreliable."
	AdvisoryRAID        = "RAID device detected; health info may be unreliable."
	AdvisoryVirtualized = "Running in virtualized environment; health info may be unreliable."
)

// Warnings that apply to the whole report
const (
	WarningNoHealthInfo = "No health information available for one or more disks. This tool should NOT be used for health monitoring tasks on these systems."
	WarningRAID         = "RAID device(s) detected. Health information may be unavailable or unreliable. This tool should NOT be used for health monitoring tasks on RAID systems."
)

// DiskReport is one volume merged with its health result
type DiskReport struct {
	volume.Volume
	FreeSpacePercent float64 `json:"free_space_percent"`
	health.Result
}

// Summary holds aggregate counts over one run
type Summary struct {
	Total       int  `json:"total"`
	LowSpace    int  `json:"low_space"`
	Failing     int  `json:"smart_failing"`
	Unknown     int  `json:"smart_unknown"`
	RAIDPresent bool `json:"raid_present"`
	Virtualized bool `json:"virtualized"`
}

// Policy is the subset of settings the alert decision depends on
type Policy struct {
	ThresholdPercent float64
	SmartAlerts      bool
	AlertOnUnknown   bool
	Debug            bool
	Forced           bool
}

// Problem is a volume that contributed to firing an alert
type Problem struct {
	Name    string
	Reasons []string
}

// Decision is the outcome of one run: a single consolidated report or nothing
type Decision struct {
	Fire     bool
	Forced   bool
	Problems []Problem
}

// Assemble pairs volumes with their results by position
func Assemble(vols []volume.Volume, results []health.Result) ([]DiskReport, error) {
	if len(vols) != len(results) {
		return nil, fmt.Errorf("have %d volumes but %d health results", len(vols), len(results))
	}
	reports := make([]DiskReport, len(vols))
	for i := range vols {
		reports[i] = DiskReport{
			Volume:           vols[i],
			FreeSpacePercent: vols[i].FreePercent(),
			Result:           results[i],
		}
	}
	return reports, nil
}

// LowSpace reports whether free space is strictly below the threshold
func (d DiskReport) LowSpace(threshold float64) bool {
	return d.FreeSpacePercent < threshold
}

// Indicator applies the precedence low space > bad status > attribute warning > OK.
// UNKNOWN is not a bad status.
func (d DiskReport) Indicator(threshold float64) Indicator {
	switch {
	case d.LowSpace(threshold):
		return IndicatorLowSpace
	case d.Bad():
		return IndicatorSmartFailing
	case d.AttributeWarning():
		return IndicatorSmartWarning
	default:
		return IndicatorOK
	}
}

// Advisories are the "may be unreliable" notes for one volume. They never
// influence the alert decision.
func (d DiskReport) Advisories(virtualized bool) []string {
	var out []string
	if !d.Method.Native() {
		out = append(out, AdvisoryFallback)
	}
	if d.RAID {
		out = append(out, AdvisoryRAID)
	}
	if virtualized {
		out = append(out, AdvisoryVirtualized)
	}
	return out
}

// Summarize computes the run summary
func Summarize(reports []DiskReport, threshold float64, virtualized bool) Summary {
	s := Summary{Total: len(reports), Virtualized: virtualized}
	for _, r := range reports {
		if r.LowSpace(threshold) {
			s.LowSpace++
		}
		if r.Bad() {
			s.Failing++
		}
		if r.Status == health.StatusUnknown {
			s.Unknown++
		}
		if r.RAID {
			s.RAIDPresent = true
		}
	}
	return s
}

// GlobalWarnings returns report-wide warnings
func GlobalWarnings(s Summary) []string {
	var out []string
	if s.Unknown > 0 {
		out = append(out, WarningNoHealthInfo)
	}
	if s.RAIDPresent {
		out = append(out, WarningRAID)
	}
	return out
}

// Decide determines whether a report is sent and which volumes caused it
func Decide(reports []DiskReport, p Policy) Decision {
	d := Decision{Forced: p.Forced}

	for _, r := range reports {
		var reasons []string
		if r.LowSpace(p.ThresholdPercent) {
			reasons = append(reasons, fmt.Sprintf("low space (%.2f%%)", r.FreeSpacePercent))
		}
		if p.SmartAlerts {
			switch {
			case r.Bad():
				reasons = append(reasons, fmt.Sprintf("SMART status: %s", r.Status))
			case r.Status == health.StatusUnknown && p.AlertOnUnknown:
				reasons = append(reasons, "SMART status: Unknown")
			}
		}
		if p.Debug {
			reasons = append(reasons, "debug mode enabled")
		}
		if len(reasons) > 0 {
			d.Problems = append(d.Problems, Problem{Name: r.DisplayName, Reasons: reasons})
		}
	}

	d.Fire = p.Forced || len(d.Problems) > 0
	return d
}

// Alerts lists human readable alert strings for the structured report
func Alerts(reports []DiskReport, threshold float64) []string {
	out := []string{}
	for _, r := range reports {
		if r.LowSpace(threshold) {
			out = append(out, fmt.Sprintf("%s: Low space (%.2f%%)", r.DisplayName, r.FreeSpacePercent))
		}
		if r.Bad() {
			out = append(out, fmt.Sprintf("%s: SMART failure (%s)", r.DisplayName, r.Status))
		}
	}
	return out
}
