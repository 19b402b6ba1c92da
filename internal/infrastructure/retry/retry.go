// Package retry wraps collaborator calls in a bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"screen-agent/internal/application/port/output"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     8 * time.Second,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *backoff.PermanentError
	return errors.As(err, &pe)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a permanent error, the attempts are
// used up or ctx is done. name labels log lines and the returned error.
func Do[T any](ctx context.Context, p Policy, logger output.LoggerPort, name string, op func(context.Context) (T, error)) (T, error) {
	attempt := 0
	val, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, backoff.Permanent(err)
		}
		return op(ctx)
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		logger.Warn("Collaborator call failed, retrying",
			"collaborator", name,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})
	if err != nil {
		return val, fmt.Errorf("%s collaborator: %w", name, err)
	}
	return val, nil
}
