package backoff

import (
	"context"
	"time"

	"github.com/yungbote/ideaforge-backend/internal/pkg/httpx"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
	// Sleep is swappable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Options)

func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

func WithBaseDelay(d time.Duration) Option {
	return func(o *Options) { o.BaseDelay = d }
}

func WithMaxDelay(d time.Duration) Option {
	return func(o *Options) { o.MaxDelay = d }
}

func WithoutJitter() Option {
	return func(o *Options) { o.Jitter = false }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Options) { o.Sleep = fn }
}

func defaultOptions() Options {
	return Options{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      true,
		Sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry runs op up to MaxAttempts times, sleeping BaseDelay * 2^attempt
// between failures. It retries on any error; the last error is returned after
// exhaustion. Callers that need to short-circuit non-retryable failures
// classify inside op (see httpx.IsRetryableError).
func Retry(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}

	var lastErr error
	delay := o.BaseDelay
	for attempt := 0; attempt < o.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == o.MaxAttempts-1 {
			break
		}
		sleepFor := delay
		if o.MaxDelay > 0 && sleepFor > o.MaxDelay {
			sleepFor = o.MaxDelay
		}
		if o.Jitter {
			sleepFor = httpx.JitterSleep(sleepFor)
		}
		if err := o.Sleep(ctx, sleepFor); err != nil {
			return lastErr
		}
		delay *= 2
	}
	return lastErr
}
