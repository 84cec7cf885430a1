// Package sync implements the save/load pipeline against the remote store:
// one parameterized retry policy, the chunked batch uploader, and the save
// saga with its persisted cursor.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gptracker/internal/remote"
)

// ErrMaxRetries indicates that all retry attempts have been exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// Policy is the single retry/backoff configuration shared by every save
// path. Delay for attempt n is InitialDelay * Multiplier^(n-1), capped at
// MaxDelay.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPolicy matches the historical upload behavior: an initial attempt
// plus five retries, waiting 1s, 2s, 4s, 8s, 16s between them.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  6,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return p
}

// sleepFunc waits for d or until the context is cancelled. Injectable so
// tests do not spend wall-clock time in backoff.
type sleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// withRetry executes operation under the policy. Authentication failures are
// never retried; waiting happens between attempts, never mid-operation.
func withRetry(ctx context.Context, operation func() error, p Policy, sleep sleepFunc) error {
	p = p.withDefaults()
	if sleep == nil {
		sleep = contextSleep
	}

	delay := p.InitialDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if errors.Is(err, remote.ErrAuth) {
			return err
		}

		if attempt == p.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, p.MaxAttempts, err)
		}

		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"delay", delay,
			"error", err)

		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return ErrMaxRetries
}
