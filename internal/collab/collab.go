// Package collab wraps calls to optional external collaborators (classroom
// registry, activity log, quiz generator) with a timeout and a uniform
// failure error, so callers can degrade instead of propagating.
package collab

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks a collaborator call that failed or timed out.
var ErrUnavailable = errors.New("collaborator unavailable")

// Call runs fn with a deadline of timeout (none when timeout <= 0). It returns
// as soon as the deadline passes even if fn ignores its context. Every failure
// is wrapped with ErrUnavailable and the collaborator name, including a panic
// inside fn.
func Call[T any](ctx context.Context, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, r.err)
		}
		return r.val, nil
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, ctx.Err())
	}
}
