package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmon/internal/health"
	"github.com/sigreer/diskmon/internal/system"
	"github.com/sigreer/diskmon/internal/volume"
)

func u64(v uint64) *uint64 { return &v }
func i64(v int64) *int64   { return &v }

func disk(name string, freePct float64, r health.Result) DiskReport {
	return DiskReport{
		Volume: volume.Volume{
			MountPoint:     name,
			DisplayName:    name,
			FileSystem:     "ext4",
			TotalBytes:     100 * bytesPerGB,
			AvailableBytes: uint64(freePct * bytesPerGB),
		},
		FreeSpacePercent: freePct,
		Result:           r,
	}
}

func ok() health.Result {
	return health.Result{Status: health.StatusOK, Method: health.MethodNativeTool}
}

func TestAssemble(t *testing.T) {
	vols := []volume.Volume{
		{MountPoint: "/", DisplayName: "/", TotalBytes: 200, AvailableBytes: 50},
		{MountPoint: "/home", DisplayName: "/home", TotalBytes: 100, AvailableBytes: 100},
	}
	results := []health.Result{ok(), health.Degraded(health.MethodTimeout)}

	got, err := Assemble(vols, results)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/", got[0].MountPoint)
	assert.InDelta(t, 25.0, got[0].FreeSpacePercent, 0.001)
	assert.Equal(t, health.StatusOK, got[0].Status)
	assert.Equal(t, health.MethodTimeout, got[1].Method)

	_, err = Assemble(vols, results[:1])
	assert.Error(t, err)
}

func TestIndicatorPrecedence(t *testing.T) {
	tests := []struct {
		name string
		disk DiskReport
		want Indicator
	}{
		{"low space beats failing", disk("/", 5, health.Result{Status: health.StatusFailing}), IndicatorLowSpace},
		{"failing", disk("/", 50, health.Result{Status: health.StatusFailing}), IndicatorSmartFailing},
		{"warning status", disk("/", 50, health.Result{Status: health.StatusWarning}), IndicatorSmartFailing},
		{"sectors", disk("/", 50, health.Result{Status: health.StatusOK, PendingSectors: u64(3)}), IndicatorSmartWarning},
		{"hot", disk("/", 50, health.Result{Status: health.StatusOK, Temperature: i64(56)}), IndicatorSmartWarning},
		{"at temperature bound", disk("/", 50, health.Result{Status: health.StatusOK, Temperature: i64(55)}), IndicatorOK},
		{"unknown is not failing", disk("/", 50, health.Degraded(health.MethodError)), IndicatorOK},
		{"ok", disk("/", 50, ok()), IndicatorOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.disk.Indicator(10))
		})
	}
}

func TestThresholdIsStrict(t *testing.T) {
	at := disk("/", 10, ok())
	below := disk("/", 9.99, ok())

	assert.False(t, at.LowSpace(10))
	assert.True(t, below.LowSpace(10))

	p := Policy{ThresholdPercent: 10, SmartAlerts: true}
	assert.False(t, Decide([]DiskReport{at}, p).Fire)
	assert.True(t, Decide([]DiskReport{below}, p).Fire)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		disks   []DiskReport
		policy  Policy
		fire    bool
		reasons []string
	}{
		{
			name:   "healthy",
			disks:  []DiskReport{disk("/", 50, ok())},
			policy: Policy{ThresholdPercent: 10, SmartAlerts: true},
		},
		{
			name:   "forced",
			disks:  []DiskReport{disk("/", 50, ok())},
			policy: Policy{ThresholdPercent: 10, SmartAlerts: true, Forced: true},
			fire:   true,
		},
		{
			name:    "low space",
			disks:   []DiskReport{disk("/", 8, ok())},
			policy:  Policy{ThresholdPercent: 10, SmartAlerts: true},
			fire:    true,
			reasons: []string{"low space (8.00%)"},
		},
		{
			name:    "failing",
			disks:   []DiskReport{disk("/", 50, health.Result{Status: health.StatusFailing})},
			policy:  Policy{ThresholdPercent: 10, SmartAlerts: true},
			fire:    true,
			reasons: []string{"SMART status: FAILING"},
		},
		{
			name:   "failing ignored when smart alerts off",
			disks:  []DiskReport{disk("/", 50, health.Result{Status: health.StatusFailing})},
			policy: Policy{ThresholdPercent: 10},
		},
		{
			name:   "unknown without alert on unknown",
			disks:  []DiskReport{disk("/", 50, health.Degraded(health.MethodTimeout))},
			policy: Policy{ThresholdPercent: 10, SmartAlerts: true},
		},
		{
			name:    "unknown with alert on unknown",
			disks:   []DiskReport{disk("/", 50, health.Degraded(health.MethodTimeout))},
			policy:  Policy{ThresholdPercent: 10, SmartAlerts: true, AlertOnUnknown: true},
			fire:    true,
			reasons: []string{"SMART status: Unknown"},
		},
		{
			name:    "debug",
			disks:   []DiskReport{disk("/", 50, ok())},
			policy:  Policy{ThresholdPercent: 10, Debug: true},
			fire:    true,
			reasons: []string{"debug mode enabled"},
		},
		{
			name:   "advisories never fire",
			disks:  []DiskReport{disk("/", 50, health.Result{Status: health.StatusOK, Method: health.MethodKernelFallback, RAID: true})},
			policy: Policy{ThresholdPercent: 10, SmartAlerts: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.disks, tt.policy)
			assert.Equal(t, tt.fire, d.Fire)
			assert.Equal(t, tt.policy.Forced, d.Forced)
			if tt.reasons == nil {
				assert.Empty(t, d.Problems)
				return
			}
			require.Len(t, d.Problems, 1)
			assert.Equal(t, tt.reasons, d.Problems[0].Reasons)
		})
	}
}

// One low-space volume and one WARNING volume fire a single report naming both.
func TestDecideConsolidatesProblems(t *testing.T) {
	disks := []DiskReport{
		disk("/", 5, ok()),
		disk("/data", 60, health.Result{Status: health.StatusWarning, Method: health.MethodKernelFallback}),
		disk("/home", 70, ok()),
	}
	d := Decide(disks, Policy{ThresholdPercent: 10, SmartAlerts: true})

	assert.True(t, d.Fire)
	require.Len(t, d.Problems, 2)
	assert.Equal(t, "/", d.Problems[0].Name)
	assert.Equal(t, "/data", d.Problems[1].Name)
}

func TestAggregationIsIdempotent(t *testing.T) {
	disks := []DiskReport{
		disk("/", 5, ok()),
		disk("/data", 60, health.Degraded(health.MethodError)),
	}
	p := Policy{ThresholdPercent: 10, SmartAlerts: true, AlertOnUnknown: true}

	assert.Equal(t, Summarize(disks, 10, false), Summarize(disks, 10, false))
	assert.Equal(t, Decide(disks, p), Decide(disks, p))
}

func TestSummarizeAndWarnings(t *testing.T) {
	disks := []DiskReport{
		disk("/", 5, ok()),
		disk("/a", 50, health.Result{Status: health.StatusFailing}),
		disk("/b", 50, health.Degraded(health.MethodTimeout)),
		disk("/c", 50, health.Result{Status: health.StatusOK, RAID: true}),
	}
	s := Summarize(disks, 10, true)
	assert.Equal(t, Summary{Total: 4, LowSpace: 1, Failing: 1, Unknown: 1, RAIDPresent: true, Virtualized: true}, s)
	assert.Equal(t, []string{WarningNoHealthInfo, WarningRAID}, GlobalWarnings(s))

	assert.Empty(t, GlobalWarnings(Summarize(disks[:1], 10, false)))
}

func TestAdvisories(t *testing.T) {
	native := disk("/", 50, ok())
	assert.Empty(t, native.Advisories(false))

	fallback := disk("/", 50, health.Result{Status: health.StatusOK, Method: health.MethodKernelFallback, RAID: true})
	assert.Equal(t, []string{AdvisoryFallback, AdvisoryRAID, AdvisoryVirtualized}, fallback.Advisories(true))

	windows := disk("C:", 50, health.Result{Status: health.StatusOK, Method: health.MethodOSNativeAPI})
	assert.Empty(t, windows.Advisories(false))
}

func TestAlerts(t *testing.T) {
	disks := []DiskReport{
		disk("/", 5.5, health.Result{Status: health.StatusFailing}),
		disk("/home", 50, health.Degraded(health.MethodError)),
	}
	assert.Equal(t, []string{"/: Low space (5.50%)", "/: SMART failure (FAILING)"}, Alerts(disks, 10))
	assert.Empty(t, Alerts(disks[1:], 10))
}

func testHeader() Header {
	return Header{
		System:           system.Info{OSName: "debian", OSVersion: "12", Architecture: "64-bit", Hostname: "nas01"},
		Time:             time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local),
		ToolAvailable:    true,
		ThresholdPercent: 10,
	}
}

func TestSubject(t *testing.T) {
	h := testHeader()
	assert.Equal(t, "System Disk Report - nas01 (debian 12 64-bit)", Subject(h))

	h.FriendlyName = "Backup NAS"
	h.Forced = true
	assert.Equal(t, "[FORCED] System Disk Report - Backup NAS (debian 12 64-bit)", Subject(h))
}

func TestHTML(t *testing.T) {
	disks := []DiskReport{
		disk("/", 5, health.Result{
			Status:             health.StatusOK,
			Method:             health.MethodNativeTool,
			Serial:             "S3Z1NB0K",
			Model:              "Samsung SSD 860",
			PowerOnHours:       u64(1200),
			ReallocatedSectors: u64(2),
			Temperature:        i64(60),
		}),
		disk("/data", 50, health.Result{Status: health.StatusUnknown, Method: health.MethodKernelFallback, RAID: true}),
	}

	body, err := HTML(testHeader(), disks)
	require.NoError(t, err)

	for _, want := range []string{
		"Device: nas01 (nas01)",
		"Report Time: 04-03-2026 05:06:07",
		"Mode: Normal Scan",
		"smartmontools detected",
		"No - Running on physical hardware",
		"Low Space (&lt;10%): 1",
		"SMART Unknown: 1",
		"WARNING: " + WarningNoHealthInfo,
		"<b>Disk 1: [LOW SPACE] /</b>",
		"<b> - Total Space:</b> 100.00 GB",
		"<b> - Used Space:</b> 95.00 GB",
		" - Power On Hours: 1200",
		"   * WARNING: Reallocated sectors detected!",
		" - Temperature: 60 C",
		"   * WARNING: High temperature!",
		" - Serial Number: S3Z1NB0K",
		"<b>Disk 2: [OK] /data</b>",
		" - SMART Status: UNKNOWN",
		" - RAID: Yes (SMART status may not be accurate)",
		"   * WARNING: " + AdvisoryFallback,
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "Pending Sectors")
	assert.True(t, strings.HasSuffix(body, "</pre></body></html>"))
}

func TestDocument(t *testing.T) {
	disks := []DiskReport{disk("/", 5, ok())}
	data, err := NewDocument(testHeader().System, disks, 10, true).Marshal()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, true, got["smartctl_available"])
	assert.Equal(t, 10.0, got["threshold_percent"])
	assert.Equal(t, []any{"/: Low space (5.00%)"}, got["alerts"])

	d := got["disks"].([]any)[0].(map[string]any)
	assert.Equal(t, "/", d["mount_point"])
	assert.Equal(t, "OK", d["smart_status"])
	assert.Equal(t, "native-tool", d["health_method"])
	assert.Equal(t, 5.0, d["free_space_percent"])

	empty, err := NewDocument(system.Info{}, nil, 10, false).Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"disks": []`)
	assert.Contains(t, string(empty), `"alerts": []`)
}
