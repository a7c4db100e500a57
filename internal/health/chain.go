package health

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/sigreer/diskmon/internal/device"
)

// Probe is one way of reading a device's health. A probe returns
// conclusive=false when it has no confident signal; any identity fields it
// did read are still merged into the final result.
type Probe interface {
	Name() string
	Method() Method
	Applies(h device.Handle) bool
	Probe(ctx context.Context, h device.Handle) (r Result, conclusive bool)
}

// Chain runs probes in order and stops at the first conclusive one
type Chain struct {
	Probes []Probe
	Log    logr.Logger
}

// Run resolves health for one device. When no probe is conclusive the
// result is UNKNOWN, attributed to the last probe that ran, or to
// MethodError when none applied.
func (c *Chain) Run(ctx context.Context, h device.Handle) Result {
	var partial Result
	last := MethodError

	for _, p := range c.Probes {
		if ctx.Err() != nil {
			break
		}
		if !p.Applies(h) {
			continue
		}
		last = p.Method()

		r, ok := p.Probe(ctx, h)
		if ok {
			r.Method = p.Method()
			r.RAID = h.RAID
			r.fill(partial)
			c.Log.V(1).Info("Probe conclusive", "device", h.Path, "probe", p.Name(),
				"status", r.Status, "model", r.Model, "serial", r.Serial)
			return r
		}

		c.Log.V(1).Info("Probe inconclusive", "device", h.Path, "probe", p.Name())
		partial.fill(r)
	}

	partial.Status = StatusUnknown
	partial.Method = last
	partial.RAID = h.RAID
	return partial
}
