package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// Jitter is a fraction of the computed delay, e.g. 0.2 for +/-20%.
	Jitter float64
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err so Retry returns it without another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Retry calls fn until it succeeds, returns a permanent error, exhausts
// MaxAttempts, or ctx is done. The permanent wrapper is removed from the
// returned error.
func Retry(ctx context.Context, cfg RetryConfig, fn func(attempt int) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		var p permanentError
		if errors.As(err, &p) {
			return p.err
		}
		if errors.Is(err, ErrCircuitOpen) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(Backoff(cfg.BaseBackoff, cfg.MaxBackoff, attempt, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// Backoff returns an exponential delay for attempt (1-based), capped at ceiling
// when ceiling is positive.
func Backoff(base, ceiling time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	shift := min(attempt-1, 16)
	d := base * time.Duration(1<<uint(shift))
	if ceiling > 0 && d > ceiling {
		d = ceiling
	}
	if jitter <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitter
	return d + time.Duration(delta)
}
