// Package resilient wraps the embedding, index and model ports with
// per-attempt timeouts, bounded retry and rate limiting.
package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

const (
	DefaultBaseDelay = 200 * time.Millisecond
	DefaultMaxDelay  = 5 * time.Second
)

// Policy bounds one kind of external call.
type Policy struct {
	Timeout     time.Duration // Per attempt; 0 disables
	MaxAttempts int           // Total attempts including the first; < 1 means 1
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Single returns a copy of p limited to one attempt.
func (p Policy) Single() Policy {
	p.MaxAttempts = 1
	return p
}

// backoff returns the wait before retry number attempt (0-based),
// doubling from BaseDelay and capped at MaxDelay.
func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	limit := p.MaxDelay
	if limit <= 0 {
		limit = DefaultMaxDelay
	}
	if attempt > 30 {
		return limit
	}
	d := base << attempt
	if d > limit || d <= 0 {
		d = limit
	}
	return d
}

// call runs fn under the policy. Permanent errors and cancellation of the
// parent context stop retries. Failures come back classified as upstream
// unless they already carry a core error kind.
func call[T any](ctx context.Context, p Policy, logger arbor.ILogger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := p.backoff(attempt - 1)
			logger.Warn().Str("op", op).Int("attempt", attempt+1).Dur("backoff", wait).Err(lastErr).Msg("Retrying upstream call")
			select {
			case <-ctx.Done():
				return zero, entities.Upstream(op, errors.Join(ctx.Err(), lastErr))
			case <-time.After(wait):
			}
		}

		result, err := attemptOnce(ctx, p.Timeout, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if entities.IsPermanent(err) || ctx.Err() != nil {
			break
		}
	}
	return zero, entities.Upstream(op, lastErr)
}

// attemptOnce runs fn once, bounded by timeout when it is positive.
func attemptOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// run is call for operations without a result.
func run(ctx context.Context, p Policy, logger arbor.ILogger, op string, fn func(ctx context.Context) error) error {
	_, err := call(ctx, p, logger, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
