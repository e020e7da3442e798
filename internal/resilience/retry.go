package resilience

import (
	"context"
	"sync/atomic"
	"time"

	"persistkit/internal/telemetry"
)

// Classifier decides whether a failure is worth retrying.
type Classifier func(error) bool

// Retryer executes operations under a retry policy. The policy is held
// behind an atomic so configuration reloads swap it without interrupting
// in-flight calls; a call observes one policy for its whole lifetime.
type Retryer struct {
	policy   atomic.Pointer[Policy]
	classify Classifier
	hub      *telemetry.Hub
	timeout  time.Duration // per-attempt command timeout; 0 disables
}

// Option configures a Retryer.
type Option func(*Retryer)

// WithClassifier replaces the default Transient classifier.
func WithClassifier(c Classifier) Option {
	return func(r *Retryer) { r.classify = c }
}

// WithHub attaches an observability hub for retry events.
func WithHub(h *telemetry.Hub) Option {
	return func(r *Retryer) { r.hub = h }
}

// WithCommandTimeout bounds each individual attempt.
func WithCommandTimeout(d time.Duration) Option {
	return func(r *Retryer) { r.timeout = d }
}

// New validates the policy and builds a Retryer.
func New(p Policy, opts ...Option) (*Retryer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r := &Retryer{classify: Transient}
	r.policy.Store(&p)
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Policy returns the currently active policy.
func (r *Retryer) Policy() Policy {
	return *r.policy.Load()
}

// SetPolicy swaps the active policy. Invalid policies are rejected and the
// previous one stays in effect.
func (r *Retryer) SetPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.policy.Store(&p)
	return nil
}

// Do executes fn, retrying transient failures with exponential backoff.
// Non-transient failures surface immediately. When the policy is disabled
// or allows zero attempts, fn runs once and any failure surfaces as-is.
// After the attempt budget is spent the last error is returned unwrapped so
// callers can still match the root cause. Cancellation during a backoff
// wait aborts before the next attempt and returns the context's error.
func (r *Retryer) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	p := r.Policy()

	attempts := p.MaxAttempts
	if !p.Enabled || attempts == 0 {
		attempts = 1
	}

	var last error
	for attempt := 1; ; attempt++ {
		err := r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !r.classify(err) {
			return err
		}
		last = err

		if attempt >= attempts {
			break
		}

		delay := p.Delay(attempt)
		r.hub.Publish(telemetry.Event{
			Kind:      telemetry.EventRetryAttempt,
			Operation: op,
			Attempt:   attempt + 1,
			Delay:     delay,
			Err:       err.Error(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	r.hub.Publish(telemetry.Event{
		Kind:      telemetry.EventRetryExhausted,
		Operation: op,
		Attempt:   attempts,
		Err:       last.Error(),
	})
	return last
}

func (r *Retryer) attempt(ctx context.Context, fn func(context.Context) error) error {
	if r.timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fn(attemptCtx)
}
