// Package polling implements the client half of the status polling protocol:
// a tiered poll schedule with jitter, soft and hard deadlines, and
// pause/resume for when the consumer loses visibility.
package polling

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrTimeout reports that the watched operation outlived the poll budget. The
// server-side work keeps running; the caller just stops waiting.
var ErrTimeout = errors.New("operation is taking longer than expected")

type Config struct {
	// Schedule holds the delays between polls; the last entry repeats as the
	// steady-state interval.
	Schedule []time.Duration
	// Jitter is the ± fraction applied to every delay.
	Jitter float64
	// Timeout is the hard budget; zero disables it.
	Timeout time.Duration
	// SoftWarnAt fires OnSoftWarn once, without stopping; zero disables it.
	SoftWarnAt time.Duration
}

// QuestionConfig is the schedule for watching question generation.
func QuestionConfig() Config {
	return Config{
		Schedule: []time.Duration{3 * time.Second, 5 * time.Second, 8 * time.Second, 10 * time.Second},
		Jitter:   0.2,
		Timeout:  60 * time.Second,
	}
}

// Stage1Config is the schedule for watching Stage-1 analysis.
func Stage1Config() Config {
	return Config{
		Schedule:   []time.Duration{3 * time.Second, 5 * time.Second, 8 * time.Second, 10 * time.Second},
		Jitter:     0.2,
		Timeout:    600 * time.Second,
		SoftWarnAt: 180 * time.Second,
	}
}

// Poller repeatedly invokes fetch until the returned status is terminal, the
// budget runs out, or ctx is canceled.
type Poller struct {
	cfg        Config
	fetch      func(ctx context.Context) (string, error)
	isTerminal func(status string) bool

	OnUpdate   func(status string)
	OnSoftWarn func()

	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}

	// swappable in tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	randF func() float64
}

func New(cfg Config, fetch func(ctx context.Context) (string, error), isTerminal func(string) bool) *Poller {
	if len(cfg.Schedule) == 0 {
		cfg.Schedule = QuestionConfig().Schedule
	}
	return &Poller{
		cfg:        cfg,
		fetch:      fetch,
		isTerminal: isTerminal,
		sleep:      sleepCtx,
		now:        time.Now,
		randF:      rand.Float64,
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

// Pause suspends polling after the current wait. Fetches never run while
// paused; the timeout clock keeps ticking.
func (p *Poller) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.paused = true
		p.resumeCh = make(chan struct{})
	}
}

func (p *Poller) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		close(p.resumeCh)
	}
}

func (p *Poller) waitIfPaused(ctx context.Context) error {
	p.mu.Lock()
	paused := p.paused
	ch := p.resumeCh
	p.mu.Unlock()
	if !paused {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

func (p *Poller) delayFor(pollIndex int) time.Duration {
	idx := pollIndex
	if idx >= len(p.cfg.Schedule) {
		idx = len(p.cfg.Schedule) - 1
	}
	d := p.cfg.Schedule[idx]
	if p.cfg.Jitter > 0 {
		// spread over [1-j, 1+j]
		factor := 1 - p.cfg.Jitter + 2*p.cfg.Jitter*p.randF()
		d = time.Duration(float64(d) * factor)
	}
	return d
}

// Run blocks until a terminal status, timeout, or context cancellation. The
// last observed status is returned alongside any error.
func (p *Poller) Run(ctx context.Context) (string, error) {
	start := p.now()
	warned := false
	lastStatus := ""

	for pollIndex := 0; ; pollIndex++ {
		if err := p.sleep(ctx, p.delayFor(pollIndex)); err != nil {
			return lastStatus, err
		}
		if err := p.waitIfPaused(ctx); err != nil {
			return lastStatus, err
		}

		elapsed := p.now().Sub(start)
		if p.cfg.SoftWarnAt > 0 && !warned && elapsed >= p.cfg.SoftWarnAt {
			warned = true
			if p.OnSoftWarn != nil {
				p.OnSoftWarn()
			}
		}
		if p.cfg.Timeout > 0 && elapsed >= p.cfg.Timeout {
			return lastStatus, ErrTimeout
		}

		status, err := p.fetch(ctx)
		if err != nil {
			// Transient fetch errors do not abort the watch; the next tick
			// retries.
			continue
		}
		lastStatus = status
		if p.OnUpdate != nil {
			p.OnUpdate(status)
		}
		if p.isTerminal(status) {
			return status, nil
		}
	}
}
