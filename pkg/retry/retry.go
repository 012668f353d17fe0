// Package retry runs an operation under a fixed-delay retry policy.
//
// The policy bounds the number of attempts, the pause between them, and the
// duration of each individual attempt:
//
//	conn, err := retry.Do(ctx, retry.Policy{
//	    MaxAttempts:    20,
//	    Delay:          500 * time.Millisecond,
//	    AttemptTimeout: 8 * time.Second,
//	}, dial, retry.OnError(func(attempt int, err error) {
//	    slog.Error("dial failed", "attempt", attempt, "error", err)
//	}))
//
// An attempt that exceeds AttemptTimeout fails that attempt only; the next one
// starts after Delay as usual.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the fixed pause between two consecutive attempts.
	Delay time.Duration

	// AttemptTimeout bounds each attempt. Zero means no per-attempt bound.
	AttemptTimeout time.Duration
}

// Error is returned by Do when no attempt succeeded.
type Error struct {
	// Attempts is the number of attempts actually made.
	Attempts int

	// Err is the error of the last attempt, or the context error when the
	// caller's context ended between attempts.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Option customizes a single Do call.
type Option func(*options)

type options struct {
	onError   func(attempt int, err error)
	retryable func(err error) bool
}

// OnError registers a hook called after every failed attempt, before the
// delay. Attempts are numbered from 1.
func OnError(fn func(attempt int, err error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// If restricts retries to errors for which fn returns true. Any other error
// is returned immediately.
func If(fn func(err error) bool) Option {
	return func(o *options) {
		o.retryable = fn
	}
}

// Do calls op until it succeeds, the policy is exhausted, a non-retryable
// error occurs, or ctx ends.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	maxAttempts := max(p.MaxAttempts, 1)

	var zero T
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		v, err := runAttempt(ctx, p.AttemptTimeout, op)
		if err == nil {
			return v, nil
		}
		if o.onError != nil {
			o.onError(attempt, err)
		}
		if o.retryable != nil && !o.retryable(err) {
			return zero, &Error{Attempts: attempt, Err: err}
		}
		if attempt >= maxAttempts {
			return zero, &Error{Attempts: attempt, Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, &Error{Attempts: attempt, Err: errors.Join(ctxErr, err)}
		}

		if p.Delay <= 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(p.Delay)
		} else {
			timer.Reset(p.Delay)
		}
		select {
		case <-ctx.Done():
			return zero, &Error{Attempts: attempt, Err: errors.Join(ctx.Err(), err)}
		case <-timer.C:
		}
	}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(actx)
}
