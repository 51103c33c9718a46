// Package retry wraps remote-store writes with classification-aware
// bounded retry. Only DependencyNotReady failures are retried: the
// backoff gives the missing parent row's own push time to land. Every
// other class returns immediately because waiting cannot fix it.
package retry

import (
	"context"
	"time"

	"github.com/harborstudio/teamsync/internal/remote"
	"github.com/harborstudio/teamsync/pkg/logger"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
)

type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

type Option func(*Options)

func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxAttempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.InitialDelay = d
		}
	}
}

// Do executes op, retrying DependencyNotReady failures with delays of
// d, 2d, 4d, ... up to MaxAttempts total attempts. The returned error
// is always nil or a *remote.SyncError carrying the last failure.
// Backoff waits observe ctx; the per-call network timeout is the
// operation's own concern and is not extended by the waits.
func Do(ctx context.Context, op func(context.Context) error, opts ...Option) error {
	options := Options{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
	}
	for _, opt := range opts {
		opt(&options)
	}

	delay := options.InitialDelay
	var last *remote.SyncError

	for attempt := 1; attempt <= options.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		last = remote.Classify(err)
		if !last.Retryable() {
			return last
		}
		if attempt == options.MaxAttempts {
			break
		}

		logger.Debug().
			Int("attempt", attempt).
			Int("max_attempts", options.MaxAttempts).
			Dur("delay", delay).
			Str("parent_table", last.Table).
			Msg("dependency not ready, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return remote.Classify(ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}

	logger.Warn().
		Int("attempts", options.MaxAttempts).
		Str("parent_table", last.Table).
		Msg("dependency still missing after retries")
	return last
}
