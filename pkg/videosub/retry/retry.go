// Package retry wraps remote calls with transient-error classification and
// exponential backoff with additive jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Defaults for the controller. Delay for attempt n (1-based) is
// min(Base * Multiplier^(n-1), MaxDelay), plus uniform jitter of up to
// JitterFrac of the delay, always added and never subtracted.
const (
	DefaultBase        = 1 * time.Second
	DefaultMultiplier  = 2.0
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 4
	DefaultJitterFrac  = 0.10
)

// transienter is the marker interface for retryable errors. Errors that do
// not implement it (or return false) are permanent and surface immediately.
type transienter interface {
	Transient() bool
}

// Controller computes backoff delays and drives retries for a remote call.
type Controller struct {
	Base        time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	MaxAttempts int
	JitterFrac  float64

	// Sleep is the delay primitive; nil uses a timer honoring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand yields a uniform value in [0,1) for jitter; nil uses math/rand.
	Rand func() float64
}

// New returns a Controller with defaults filled in for zero fields.
func New() *Controller {
	return &Controller{
		Base:        DefaultBase,
		Multiplier:  DefaultMultiplier,
		MaxDelay:    DefaultMaxDelay,
		MaxAttempts: DefaultMaxAttempts,
		JitterFrac:  DefaultJitterFrac,
	}
}

// Delay returns the pre-jitter backoff for a 1-based attempt number.
func (c *Controller) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.Base
	if base <= 0 {
		base = DefaultBase
	}
	mult := c.Multiplier
	if mult <= 0 {
		mult = DefaultMultiplier
	}
	max := c.MaxDelay
	if max <= 0 {
		max = DefaultMaxDelay
	}
	d := time.Duration(float64(base) * math.Pow(mult, float64(attempt-1)))
	if d > max || d < 0 {
		d = max
	}
	return d
}

// Jittered returns the delay with uniform additive jitter applied. The
// result is always >= d and <= d + JitterFrac*d.
func (c *Controller) Jittered(d time.Duration) time.Duration {
	frac := c.JitterFrac
	if frac <= 0 {
		return d
	}
	r := c.Rand
	if r == nil {
		r = rand.Float64
	}
	return d + time.Duration(r()*frac*float64(d))
}

// Do runs op, retrying transient failures up to MaxAttempts with backoff.
// Permanent errors surface immediately. On budget exhaustion the last error
// is returned wrapped so Exhausted reports true for it.
func (c *Controller) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if err := c.sleep(ctx, c.Jittered(c.Delay(attempt))); err != nil {
			return err
		}
	}

	return &exhaustedError{err: lastErr, attempts: attempts}
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isTransient(err error) bool {
	var t transienter
	return errors.As(err, &t) && t.Transient()
}

// exhaustedError annotates the final error after the retry budget ran out.
type exhaustedError struct {
	err      error
	attempts int
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.attempts, e.err)
}

func (e *exhaustedError) Unwrap() error { return e.err }

// Exhausted reports whether err carries the retries-exhausted annotation.
func Exhausted(err error) bool {
	var e *exhaustedError
	return errors.As(err, &e)
}
