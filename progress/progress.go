// Package progress rate-limits a caller-supplied progress callback so a
// fast transport acknowledging many small parts doesn't flood the
// caller's UI thread with one invocation per part.
package progress

import (
	"context"

	"golang.org/x/time/rate"
)

// defaultRate bounds callback invocations to 15 per second, the same
// rate nkt.AddressScan uses for its own polling limiter.
const defaultRate = 15

// Reporter wraps a callback with a token-bucket rate limiter, coalescing
// byte counts accumulated between invocations.
type Reporter struct {
	fn      func(bytesSinceLast uint64)
	limiter *rate.Limiter
	pending uint64
}

// New wraps fn. A nil fn produces a Reporter whose Report is a no-op,
// letting callers unconditionally construct one even when the caller
// supplied no callback.
func New(fn func(bytesSinceLast uint64)) *Reporter {
	return &Reporter{fn: fn, limiter: rate.NewLimiter(defaultRate, defaultRate)}
}

// Report records n additional bytes transferred and invokes the
// underlying callback if the rate limiter currently allows it; otherwise
// the bytes accumulate and are reported on a later call.
func (r *Reporter) Report(n uint64) {
	if r.fn == nil {
		return
	}
	r.pending += n
	if !r.limiter.Allow() {
		return
	}
	sent := r.pending
	r.pending = 0
	r.fn(sent)
}

// Flush invokes the callback with any bytes accumulated since the last
// report, bypassing the rate limit. Callers should invoke this once after
// the transfer completes so trailing bytes aren't silently dropped.
func (r *Reporter) Flush() {
	if r.fn == nil || r.pending == 0 {
		return
	}
	sent := r.pending
	r.pending = 0
	r.fn(sent)
}

// Wait blocks until the limiter admits another report, honoring ctx
// cancellation. Unused by the synchronous flash sequencer today but kept
// for callers driving the reporter from its own goroutine.
func (r *Reporter) Wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
