package report

import (
	"encoding/json"
	"fmt"

	"github.com/sigreer/diskmon/internal/system"
)

// Document is the structured report printed with --json
type Document struct {
	SystemInfo        system.Info  `json:"system_info"`
	Disks             []DiskReport `json:"disks"`
	ThresholdPercent  float64      `json:"threshold_percent"`
	SmartctlAvailable bool         `json:"smartctl_available"`
	Alerts            []string     `json:"alerts"`
}

// NewDocument builds the structured report for one run
func NewDocument(info system.Info, reports []DiskReport, threshold float64, toolAvailable bool) Document {
	if reports == nil {
		reports = []DiskReport{}
	}
	return Document{
		SystemInfo:        info,
		Disks:             reports,
		ThresholdPercent:  threshold,
		SmartctlAvailable: toolAvailable,
		Alerts:            Alerts(reports, threshold),
	}
}

// Marshal renders the document as indented JSON
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}
