package common

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/spicewise/internal/cancel"
	"github.com/Veraticus/spicewise/internal/service"
)

// WithRetry executes an operation under the given retry policy.
//
// Cancellation is checked before every attempt and again after every backoff
// delay. When attempts run out, the error of the last attempt is returned as is.
func WithRetry(ctx context.Context, operation func(ctx context.Context, attempt int) error, opts service.RetryOptions) error {
	opts = withRetryDefaults(opts)

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := cancel.Check(ctx); err != nil {
			return err
		}

		err := operation(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		delay, retry := opts.Backoff(attempt, err)
		if !retry || attempt == opts.MaxAttempts {
			return err
		}

		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, delay, err)
		}

		if err := opts.Sleep(ctx, delay); err != nil {
			return err
		}
		if err := cancel.Check(ctx); err != nil {
			return err
		}
	}

	return lastErr
}

func withRetryDefaults(opts service.RetryOptions) service.RetryOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff == nil {
		opts.Backoff = noRetry
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	return opts
}

func noRetry(int, error) (time.Duration, bool) {
	return 0, false
}

// Sleep waits for d, returning early with a cancellation error if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return cancel.Check(ctx)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return cancel.Check(ctx)
	case <-timer.C:
		return nil
	}
}
