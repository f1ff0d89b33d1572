package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) Config {
	return Config{
		Op:         "test",
		MaxRetries: maxRetries,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   20 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestDo(t *testing.T) {
	permanent := errors.New("permanent")

	tests := []struct {
		name      string
		failures  int  // calls that fail before success
		retryable bool // whether failures are wrapped as retryable
		max       int
		wantCalls int
		wantErr   error
	}{
		{name: "first call succeeds", failures: 0, max: 3, wantCalls: 1},
		{name: "recovers after retryable failures", failures: 2, retryable: true, max: 3, wantCalls: 3},
		{name: "non-retryable stops immediately", failures: 5, max: 3, wantCalls: 1, wantErr: permanent},
		{name: "budget exhausted", failures: 10, retryable: true, max: 2, wantCalls: 3, wantErr: permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Do(context.Background(), fastConfig(tt.max), func() (string, error) {
				calls++
				if calls <= tt.failures {
					if tt.retryable {
						return "", Retryable(permanent)
					}
					return "", permanent
				}
				return "ok", nil
			})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != "ok" {
					t.Errorf("result = %q, want ok", got)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if IsRetryable(err) {
				t.Errorf("returned error should be unwrapped, got %T", err)
			}
		})
	}
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(50)
	cfg.BaseDelay = 50 * time.Millisecond
	cfg.MaxDelay = time.Second

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, cfg, func() (int, error) {
		return 0, Retryable(errors.New("keep retrying"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error should not be retryable")
	}
	if !IsRetryable(Retryable(errors.New("transient"))) {
		t.Error("wrapped error should be retryable")
	}
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
}

func TestCalculateDelay(t *testing.T) {
	cfg := Config{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
		Multiplier: 2.0,
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond, // capped
	}
	for attempt, w := range want {
		if got := cfg.calculateDelay(attempt); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, got, w)
		}
	}
}

func TestCalculateDelayJitterBounds(t *testing.T) {
	cfg := Config{
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  2.0,
		JitterRatio: 0.1,
	}
	for i := 0; i < 50; i++ {
		d := cfg.calculateDelay(0)
		if d < 90*time.Millisecond || d > 110*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", d)
		}
	}
}
