package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
)

// Retry bounds the exponential backoff applied around a Sink
type Retry struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxAttempts     uint64
}

// DefaultRetry is the delivery policy for report mail
var DefaultRetry = Retry{
	InitialInterval: time.Second,
	MaxInterval:     30 * time.Second,
	MaxElapsedTime:  5 * time.Minute,
	MaxAttempts:     3,
}

func (r Retry) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	b.MaxInterval = r.MaxInterval
	b.MaxElapsedTime = r.MaxElapsedTime

	var bo backoff.BackOff = b
	if r.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(bo, r.MaxAttempts-1)
	}
	return backoff.WithContext(bo, ctx)
}

// DeliverWithRetry calls sink until it succeeds or the policy is exhausted.
// The returned error wraps the last delivery failure.
func DeliverWithRetry(ctx context.Context, sink Sink, m Message, r Retry, log logr.Logger) error {
	attempt := 0
	op := func() error {
		attempt++
		return sink.Deliver(ctx, m)
	}
	notify := func(err error, wait time.Duration) {
		log.Info("Report delivery failed, retrying", "attempt", attempt, "retry_in", wait.String(), "error", err.Error())
	}

	if err := backoff.RetryNotify(op, r.policy(ctx), notify); err != nil {
		return fmt.Errorf("delivery failed after %d attempt(s): %w", attempt, err)
	}
	log.V(1).Info("Report delivered", "attempts", attempt, "recipients", len(m.Recipients))
	return nil
}
