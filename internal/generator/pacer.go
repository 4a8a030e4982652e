package generator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer is consulted before every backend call.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Wait(ctx context.Context) error { return ctx.Err() }

// DelayPacer spaces calls at least Delay apart, across all callers. The
// first call goes through immediately.
type DelayPacer struct {
	Delay time.Duration

	mu   sync.Mutex
	next time.Time // earliest start of the next call
}

func (p *DelayPacer) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	now := time.Now()
	at := now
	if p.next.After(now) {
		at = p.next
	}
	p.next = at.Add(p.Delay)
	p.mu.Unlock()

	wait := at.Sub(now)
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RatePacer is a token bucket allowing perSecond calls with the given
// burst.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer returns a RatePacer. burst < 1 is treated as 1.
func NewRatePacer(perSecond float64, burst int) *RatePacer {
	return &RatePacer{limiter: rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Pacers waits on each pacer in turn.
type Pacers []Pacer

func (ps Pacers) Wait(ctx context.Context) error {
	for _, p := range ps {
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// NewPacer builds the pacing policy from configuration: a fixed delay, a
// rate limit, both or neither.
func NewPacer(delay time.Duration, perSecond float64, burst int) Pacer {
	var ps Pacers
	if delay > 0 {
		ps = append(ps, &DelayPacer{Delay: delay})
	}
	if perSecond > 0 {
		ps = append(ps, NewRatePacer(perSecond, burst))
	}
	switch len(ps) {
	case 0:
		return NoPacer{}
	case 1:
		return ps[0]
	}
	return ps
}
