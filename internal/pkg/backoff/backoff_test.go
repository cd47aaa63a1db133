package backoff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func noSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return fmt.Errorf("attempt %d failed", calls)
	}, WithMaxAttempts(3), WithBaseDelay(time.Second), WithoutJitter(), WithSleep(noSleep(&delays)))

	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if err.Error() != "attempt 3 failed" {
		t.Fatalf("err=%q, want last error", err.Error())
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
}

func TestRetryExponentialDelays(t *testing.T) {
	var delays []time.Duration
	_ = Retry(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}, WithMaxAttempts(4), WithBaseDelay(time.Second), WithoutJitter(), WithSleep(noSleep(&delays)))

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays=%v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d]=%v, want %v", i, delays[i], want[i])
		}
	}
}

func TestRetryRecoversAfterFailures(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithMaxAttempts(3), WithoutJitter(), WithSleep(noSleep(&delays)))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls=%d, want 0", calls)
	}
}

func TestRetryMaxDelayCap(t *testing.T) {
	var delays []time.Duration
	_ = Retry(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}, WithMaxAttempts(6), WithBaseDelay(time.Second), WithMaxDelay(4*time.Second), WithoutJitter(), WithSleep(noSleep(&delays)))

	for i, d := range delays {
		if d > 4*time.Second {
			t.Fatalf("delay[%d]=%v exceeds cap", i, d)
		}
	}
}
