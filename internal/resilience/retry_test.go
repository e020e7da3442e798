package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persistkit/internal/telemetry"
)

var errFlaky = errors.New("flaky")

// transientAlways treats every failure as retriable; used to exercise the
// loop without constructing driver errors.
func transientAlways(error) bool { return true }

func fastPolicy(attempts int) Policy {
	return Policy{
		Enabled:           true,
		MaxAttempts:       attempts,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr string
	}{
		{"defaults valid", func(*Policy) {}, ""},
		{"negative attempts", func(p *Policy) { p.MaxAttempts = -1 }, "max attempts"},
		{"negative initial", func(p *Policy) { p.InitialDelay = -time.Second }, "initial delay"},
		{"max below initial", func(p *Policy) { p.MaxDelay = p.InitialDelay - 1 }, "max delay"},
		{"multiplier below one", func(p *Policy) { p.BackoffMultiplier = 0.5 }, "multiplier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPolicy_DelaySchedule(t *testing.T) {
	p := Policy{
		Enabled:           true,
		MaxAttempts:       5,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10000 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	require.NoError(t, p.Validate())

	assert.Equal(t, 500*time.Millisecond, p.Delay(1))
	assert.Equal(t, 1000*time.Millisecond, p.Delay(2))
	assert.Equal(t, 2000*time.Millisecond, p.Delay(3))
}

func TestPolicy_DelayCappedAtMax(t *testing.T) {
	p := DefaultPolicy() // 100ms initial, 5s max, 2.0 multiplier
	assert.Equal(t, 5000*time.Millisecond, p.Delay(10))
}

func TestDo_ExactAttemptCountThenOriginalError(t *testing.T) {
	r, err := New(fastPolicy(3), WithClassifier(transientAlways))
	require.NoError(t, err)

	calls := 0
	got := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errFlaky
	})

	assert.Equal(t, 3, calls)
	assert.Same(t, errFlaky, got) // surfaced unwrapped
}

func TestDo_SucceedsMidway(t *testing.T) {
	r, err := New(fastPolicy(5), WithClassifier(transientAlways))
	require.NoError(t, err)

	calls := 0
	got := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	assert.NoError(t, got)
	assert.Equal(t, 3, calls)
}

func TestDo_DisabledNeverDelays(t *testing.T) {
	p := DefaultPolicy()
	p.Enabled = false
	r, err := New(p, WithClassifier(transientAlways))
	require.NoError(t, err)

	calls := 0
	start := time.Now()
	got := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errFlaky
	})

	assert.Same(t, errFlaky, got)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestDo_ZeroAttemptsSurfacesImmediately(t *testing.T) {
	p := fastPolicy(0)
	r, err := New(p, WithClassifier(transientAlways))
	require.NoError(t, err)

	calls := 0
	got := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.Same(t, errFlaky, got)
	assert.Equal(t, 1, calls)
}

func TestDo_NonTransientNotRetried(t *testing.T) {
	r, err := New(fastPolicy(5), WithClassifier(func(error) bool { return false }))
	require.NoError(t, err)

	calls := 0
	got := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.Same(t, errFlaky, got)
	assert.Equal(t, 1, calls)
}

func TestDo_CancellationDuringWait(t *testing.T) {
	p := fastPolicy(3)
	p.InitialDelay = time.Hour
	p.MaxDelay = time.Hour
	r, err := New(p, WithClassifier(transientAlways))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, "op", func(context.Context) error {
			calls++
			return errFlaky
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case got := <-done:
		assert.ErrorIs(t, got, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry wait did not honor cancellation")
	}
}

func TestDo_PerAttemptTimeoutIsTransient(t *testing.T) {
	r, err := New(fastPolicy(2),
		WithCommandTimeout(10*time.Millisecond))
	require.NoError(t, err)

	calls := 0
	got := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, got, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestDo_PublishesRetryAndExhaustionEvents(t *testing.T) {
	hub := telemetry.New()
	events, cancel := hub.Subscribe(16)
	defer cancel()

	r, err := New(fastPolicy(3), WithClassifier(transientAlways), WithHub(hub))
	require.NoError(t, err)

	_ = r.Do(context.Background(), "update", func(context.Context) error {
		return errFlaky
	})

	var kinds []telemetry.EventKind
	for i := 0; i < 3; i++ {
		select {
		case e := <-events:
			kinds = append(kinds, e.Kind)
			assert.Equal(t, "update", e.Operation)
		case <-time.After(time.Second):
			t.Fatal("missing telemetry event")
		}
	}
	assert.Equal(t, []telemetry.EventKind{
		telemetry.EventRetryAttempt,
		telemetry.EventRetryAttempt,
		telemetry.EventRetryExhausted,
	}, kinds)
}

func TestSetPolicy_RejectsInvalidKeepsCurrent(t *testing.T) {
	r, err := New(fastPolicy(3))
	require.NoError(t, err)

	bad := fastPolicy(3)
	bad.BackoffMultiplier = 0
	require.Error(t, r.SetPolicy(bad))
	assert.Equal(t, 3, r.Policy().MaxAttempts)

	good := fastPolicy(7)
	require.NoError(t, r.SetPolicy(good))
	assert.Equal(t, 7, r.Policy().MaxAttempts)
}
