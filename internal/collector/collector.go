package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/sigreer/diskmon/internal/health"
	"github.com/sigreer/diskmon/internal/volume"
)

// DefaultTimeout bounds a single volume's health resolution
const DefaultTimeout = 30 * time.Second

// Collector runs health resolution for every volume in parallel
type Collector struct {
	Checker health.Checker
	// Timeout per volume; DefaultTimeout when zero
	Timeout time.Duration
	// MaxConcurrency caps running units; zero runs every volume at once
	MaxConcurrency int
	// Enabled false skips probing and marks every volume disabled
	Enabled bool
	Log     logr.Logger
}

// Collect returns one result per volume, in the same order as vols. It
// always waits for every unit; a crashed unit yields UNKNOWN/error and a
// unit that exceeds the timeout yields UNKNOWN/timeout.
func (c *Collector) Collect(ctx context.Context, vols []volume.Volume) []health.Result {
	results := make([]health.Result, len(vols))

	if !c.Enabled {
		for i := range results {
			results[i] = health.Degraded(health.MethodDisabled)
		}
		return results
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var g errgroup.Group
	if c.MaxConcurrency > 0 {
		g.SetLimit(c.MaxConcurrency)
	}

	start := time.Now()
	for i, v := range vols {
		i, v := i, v
		g.Go(func() error {
			results[i] = c.unit(ctx, v, timeout)
			return nil
		})
	}
	_ = g.Wait()

	c.Log.V(1).Info("Health collection finished", "volumes", len(vols), "elapsed", time.Since(start).String())
	return results
}

// unit races one volume's check against its timeout. The check runs on
// its own goroutine so a probe that ignores cancellation cannot hold the
// unit past the deadline; the buffered channel lets it finish and exit.
func (c *Collector) unit(parent context.Context, v volume.Volume, timeout time.Duration) health.Result {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan health.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.Log.Error(fmt.Errorf("panic: %v", r), "Health check crashed", "volume", v.DisplayName)
				done <- health.Degraded(health.MethodError)
			}
		}()
		done <- c.Checker.Check(ctx, v.MountPoint)
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		c.Log.Info("Health check timed out", "volume", v.DisplayName, "timeout", timeout.String())
		return health.Degraded(health.MethodTimeout)
	}
}
