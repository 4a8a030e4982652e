package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryProvider retries failed calls with exponential backoff and ±20%
// jitter. A schema violation gets a single extra attempt; truncation and
// context errors are returned at once; anything else (rate limits,
// outages, network errors) is retried up to MaxAttempts.
type RetryProvider struct {
	inner Provider
	cfg   RetryConfig
	log   logrus.FieldLogger
}

// WithRetry wraps a Provider with retry logic. log may be nil.
func WithRetry(p Provider, cfg RetryConfig, log logrus.FieldLogger) Provider {
	return &RetryProvider{inner: p, cfg: cfg, log: log}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	attempts := max(r.cfg.MaxAttempts, 1)
	var reshaped bool

	for attempt := 1; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if attempt == attempts || !retryable(err, &reshaped) {
			return nil, err
		}

		wait := r.backoff(attempt, err)
		if r.log != nil {
			r.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"of":      attempts,
				"wait":    wait.Round(time.Millisecond).String(),
				"purpose": PurposeFrom(ctx),
			}).WithError(err).Warn("llm call failed, retrying")
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// retryable classifies err. reshaped records whether the one extra
// attempt for a malformed dataset has been spent.
func retryable(err error, reshaped *bool) bool {
	var (
		maxTok  *ErrMaxTokensExceeded
		invalid *ErrInvalidResponse
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.As(err, &maxTok):
		// The same prompt truncates again; fewer items per chunk is the fix.
		return false
	case errors.As(err, &invalid):
		if *reshaped {
			return false
		}
		*reshaped = true
		return true
	}
	return true
}

// backoff returns the pause after the given 1-based attempt. A rate
// limit's RetryAfter wins over the computed delay.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	mult := max(r.cfg.Multiplier, 1)
	wait := float64(r.cfg.InitialWait) * math.Pow(mult, float64(attempt-1))
	if r.cfg.MaxWait > 0 {
		wait = min(wait, float64(r.cfg.MaxWait))
	}
	wait *= 1 + 0.2*(2*rand.Float64()-1)
	return time.Duration(max(wait, 0))
}
