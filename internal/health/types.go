package health

// Status is the health classification of one device
type Status string

const (
	StatusOK      Status = "OK"
	StatusWarning Status = "WARNING"
	StatusFailing Status = "FAILING"
	StatusUnknown Status = "UNKNOWN"
)

// Method records which stage produced a Result
type Method string

const (
	MethodNativeTool     Method = "native-tool"
	MethodKernelFallback Method = "kernel-fallback"
	MethodOSNativeAPI    Method = "os-native-api"
	MethodDisabled       Method = "disabled"
	MethodError          Method = "error"
	MethodTimeout        Method = "timeout"
)

// Native reports whether the method reads health from the device itself
func (m Method) Native() bool {
	return m == MethodNativeTool || m == MethodOSNativeAPI
}

// TempWarnCelsius is the temperature above which an attribute warning is raised
const TempWarnCelsius = 55

// Result is the health signal for one volume's device. Optional values are
// pointers so "not reported" stays distinct from zero.
type Result struct {
	Status Status `json:"smart_status"`
	Method Method `json:"health_method"`

	Serial string `json:"serial_number,omitempty"`
	Brand  string `json:"brand,omitempty"`
	Model  string `json:"model,omitempty"`
	RAID   bool   `json:"is_raid"`

	PowerOnHours         *uint64 `json:"power_on_hours,omitempty"`
	ReallocatedSectors   *uint64 `json:"reallocated_sectors,omitempty"`
	PendingSectors       *uint64 `json:"pending_sectors,omitempty"`
	UncorrectableSectors *uint64 `json:"uncorrectable_sectors,omitempty"`
	Temperature          *int64  `json:"temperature,omitempty"`
}

// Degraded returns an UNKNOWN result for a stage that produced no signal
func Degraded(m Method) Result {
	return Result{Status: StatusUnknown, Method: m}
}

// Bad reports whether the status is WARNING or FAILING
func (r Result) Bad() bool {
	return r.Status == StatusWarning || r.Status == StatusFailing
}

// SectorErrors reports whether any sector error counter is above zero
func (r Result) SectorErrors() bool {
	return positive(r.ReallocatedSectors) || positive(r.PendingSectors) || positive(r.UncorrectableSectors)
}

// Hot reports whether the temperature is above TempWarnCelsius
func (r Result) Hot() bool {
	return r.Temperature != nil && *r.Temperature > TempWarnCelsius
}

// AttributeWarning reports any attribute past its fixed warning bound
func (r Result) AttributeWarning() bool {
	return r.SectorErrors() || r.Hot()
}

// HasAttributes reports whether any SMART attribute was read
func (r Result) HasAttributes() bool {
	return r.PowerOnHours != nil || r.ReallocatedSectors != nil || r.PendingSectors != nil ||
		r.UncorrectableSectors != nil || r.Temperature != nil
}

// fill copies identity and attribute fields from other where r has none
func (r *Result) fill(other Result) {
	if r.Serial == "" {
		r.Serial = other.Serial
	}
	if r.Brand == "" {
		r.Brand = other.Brand
	}
	if r.Model == "" {
		r.Model = other.Model
	}
	if r.PowerOnHours == nil {
		r.PowerOnHours = other.PowerOnHours
	}
	if r.ReallocatedSectors == nil {
		r.ReallocatedSectors = other.ReallocatedSectors
	}
	if r.PendingSectors == nil {
		r.PendingSectors = other.PendingSectors
	}
	if r.UncorrectableSectors == nil {
		r.UncorrectableSectors = other.UncorrectableSectors
	}
	if r.Temperature == nil {
		r.Temperature = other.Temperature
	}
}

func positive(v *uint64) bool {
	return v != nil && *v > 0
}
