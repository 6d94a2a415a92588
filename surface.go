package flurry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrSurfaceUnavailable is returned by AwaitSurface when the surface did not
// become ready within the retry ceiling. Callers abandon the effect silently.
var ErrSurfaceUnavailable = errors.New("flurry: render surface unavailable")

// Surface reports whether the host drawing surface can accept visuals yet.
type Surface interface {
	IsReady() bool
}

// SurfaceFunc adapts a function to the Surface interface.
type SurfaceFunc func() bool

// IsReady calls f.
func (f SurfaceFunc) IsReady() bool { return f() }

// RetryConfig bounds the readiness poll.
type RetryConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultRetry polls every 100ms for five seconds.
var DefaultRetry = RetryConfig{Interval: 100 * time.Millisecond, MaxAttempts: 50}

var errNotReady = errors.New("surface not ready")

// AwaitSurface polls s at a fixed interval until it is ready, the attempt
// ceiling is hit, or ctx is done. Exhausting the ceiling yields
// ErrSurfaceUnavailable; a cancelled ctx yields ctx.Err().
func AwaitSurface(ctx context.Context, s Surface, cfg RetryConfig, logf func(format string, args ...any)) error {
	if s == nil {
		return fmt.Errorf("%w: nil surface", ErrSurfaceUnavailable)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRetry.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetry.MaxAttempts
	}

	op := func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !s.IsReady() {
			return struct{}{}, errNotReady
		}
		return struct{}{}, nil
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(cfg.Interval)),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			if logf != nil {
				logf("[flurry] surface: %v, retrying in %v", err, next)
			}
		}),
	)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w after %d attempts", ErrSurfaceUnavailable, cfg.MaxAttempts)
}
