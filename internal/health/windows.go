package health

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/sigreer/diskmon/internal/device"
	"github.com/sigreer/diskmon/internal/shell"
)

// HealthStatus and OperationalStatus are enums in the storage module, so
// they are cast to strings before serialization
const physicalDiskHealthQuery = `
$disk = Get-PhysicalDisk | Where-Object { $_.DeviceId -eq '%d' } | Select-Object -First 1
if (-not $disk) { Write-Output "PHYSICAL_DISK_HEALTH_NOT_FOUND"; exit 1 }
[PSCustomObject]@{
    FriendlyName      = $disk.FriendlyName
    Model             = $disk.Model
    Manufacturer      = $disk.Manufacturer
    SerialNumber      = $disk.SerialNumber
    HealthStatus      = [string]$disk.HealthStatus
    OperationalStatus = [string]($disk.OperationalStatus -join ',')
} | ConvertTo-Json -Compress
`

type physicalDiskHealth struct {
	FriendlyName      string `json:"FriendlyName"`
	Model             string `json:"Model"`
	Manufacturer      string `json:"Manufacturer"`
	SerialNumber      string `json:"SerialNumber"`
	HealthStatus      string `json:"HealthStatus"`
	OperationalStatus string `json:"OperationalStatus"`
}

// PhysicalDiskProbe asks the Windows storage module for disk health
type PhysicalDiskProbe struct {
	Runner shell.Runner
	Log    logr.Logger
}

func (p *PhysicalDiskProbe) Name() string   { return "get-physicaldisk" }
func (p *PhysicalDiskProbe) Method() Method { return MethodOSNativeAPI }

func (p *PhysicalDiskProbe) Applies(h device.Handle) bool {
	return h.Family == device.FamilyWinPD && h.DiskIndex >= 0
}

func (p *PhysicalDiskProbe) Probe(ctx context.Context, h device.Handle) (Result, bool) {
	out, err := p.Runner.Run(ctx, "powershell", "-NoProfile", "-Command",
		fmt.Sprintf(physicalDiskHealthQuery, h.DiskIndex))
	if err != nil {
		p.Log.V(1).Info("PowerShell failed", "disk", h.DiskIndex, "error", err.Error())
		return Result{}, false
	}
	if !out.Success() {
		p.Log.V(1).Info("Get-PhysicalDisk failed", "disk", h.DiskIndex,
			"output", strings.TrimSpace(string(out.Stdout)))
		return Result{}, false
	}

	r, err := ParsePhysicalDisk(out.Stdout)
	if err != nil {
		p.Log.V(1).Info("Unexpected Get-PhysicalDisk output", "disk", h.DiskIndex, "error", err.Error())
		return Result{}, false
	}
	return r, true
}

// ParsePhysicalDisk classifies the JSON emitted by the health query
func ParsePhysicalDisk(data []byte) (Result, error) {
	var disk physicalDiskHealth
	if err := json.Unmarshal(data, &disk); err != nil {
		return Result{}, fmt.Errorf("failed to decode disk health: %w", err)
	}

	r := Result{
		Serial: strings.TrimSpace(disk.SerialNumber),
		Brand:  strings.TrimSpace(disk.Manufacturer),
		Model:  strings.TrimSpace(disk.Model),
	}
	if r.Model == "" {
		r.Model = strings.TrimSpace(disk.FriendlyName)
	}

	health, operational := disk.HealthStatus, disk.OperationalStatus
	switch {
	case health == "Healthy" && operational == "OK":
		r.Status = StatusOK
	case health == "Unhealthy" || operational != "OK":
		r.Status = StatusFailing
	default:
		r.Status = StatusWarning
	}
	return r, nil
}
