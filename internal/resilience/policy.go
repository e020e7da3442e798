// Package resilience classifies storage failures as transient or not and
// retries transient ones with bounded exponential backoff.
package resilience

import (
	"fmt"
	"math"
	"time"
)

// Policy is the immutable retry configuration. Validate before use; invalid
// combinations are rejected at configuration time, not at call time.
type Policy struct {
	Enabled           bool
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultPolicy returns the documented defaults: enabled, 3 attempts,
// 100ms initial delay, 5s cap, 2.0 multiplier.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:           true,
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          5000 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// Validate checks field constraints eagerly.
func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("retry policy: max attempts %d must be >= 0", p.MaxAttempts)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("retry policy: initial delay %s must be >= 0", p.InitialDelay)
	}
	if p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("retry policy: max delay %s must be >= initial delay %s", p.MaxDelay, p.InitialDelay)
	}
	if p.BackoffMultiplier < 1.0 {
		return fmt.Errorf("retry policy: backoff multiplier %g must be >= 1.0", p.BackoffMultiplier)
	}
	return nil
}

// Delay returns the wait before the given retry (1-indexed: retry 1
// precedes the second execution attempt), capped at MaxDelay.
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(retry-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
