// Package retry implements a cancellable retry-with-backoff combinator and a
// sequential first-success fallback chain over redundant operations.
package retry

import (
	"context"
	"sync"
	"time"

	"github.com/goodpoints/walletpoints/pkg/metrics"
)

// Policy bounds the retry loop. The operation is invoked MaxAttempts+1 times
// in total, with a fixed Wait between attempts.
type Policy struct {
	MaxAttempts int
	Wait        time.Duration
}

// Handle is the one-shot settlement of an in-flight retried operation.
// It settles exactly once: with the operation's value, its last failure,
// ErrCanceled, or the context error.
type Handle[T any] struct {
	mu      sync.Mutex
	settled bool
	val     T
	err     error
	done    chan struct{}
}

// Do invokes fn, retrying per policy, and returns a handle immediately.
// The backoff wait suspends only the retry goroutine; it never blocks other
// work in the process.
func Do[T any](ctx context.Context, fn func(context.Context) (T, error), p Policy) *Handle[T] {
	h := &Handle[T]{done: make(chan struct{})}
	go h.run(ctx, fn, p)
	return h
}

func (h *Handle[T]) run(ctx context.Context, fn func(context.Context) (T, error), p Policy) {
	remaining := p.MaxAttempts
	for {
		metrics.RecordRetryAttempt()
		v, err := fn(ctx)
		if err == nil {
			h.settle(v, nil)
			return
		}
		if h.isSettled() {
			// Canceled while the attempt was in flight; discard the outcome.
			return
		}
		if remaining <= 0 {
			var zero T
			h.settle(zero, err)
			return
		}
		remaining--

		timer := time.NewTimer(p.Wait)
		select {
		case <-timer.C:
		case <-h.done:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			var zero T
			h.settle(zero, ctx.Err())
			return
		}
	}
}

// settle records the outcome if the handle has not settled yet.
func (h *Handle[T]) settle(v T, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.settled {
		return
	}
	h.settled = true
	h.val = v
	h.err = err
	close(h.done)
}

func (h *Handle[T]) isSettled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settled
}

// Cancel settles the handle with ErrCanceled. It is safe to call any number
// of times, from any goroutine, and is a no-op once the handle has settled.
// A success from an attempt still in flight at cancel time is discarded.
func (h *Handle[T]) Cancel() {
	var zero T
	h.settle(zero, ErrCanceled)
}

// Result blocks until the operation settles or ctx is done.
func (h *Handle[T]) Result(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.val, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
