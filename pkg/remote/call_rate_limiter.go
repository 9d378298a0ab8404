package remote

import (
	"context"
	"sync"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	callRateLimiterPrometheusMetrics sync.Once

	callRateLimiterWaitDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "remote",
			Name:      "call_rate_limiter_wait_duration_seconds",
			Help:      "Amount of time calls against remote stores were delayed to stay within the call budget, in seconds.",
			Buckets:   util.DecimalExponentialBuckets(-3, 6, 2),
		})
)

// CallRateLimiter bounds the rate at which calls are issued against a
// remote store. Calls that would exceed the budget are delayed instead
// of rejected.
type CallRateLimiter interface {
	// Wait blocks until a call may be issued. An error is only
	// returned if the context is done before that happens.
	Wait(ctx context.Context) error
}

type slidingWindowCallRateLimiter struct {
	clock        clock.Clock
	maximumCalls int
	window       time.Duration

	lock sync.Mutex
	// Start times of the most recent calls that are still within
	// the window, in increasing order.
	calls []time.Time
}

// NewSlidingWindowCallRateLimiter creates a CallRateLimiter that
// permits at most maximumCalls calls within any time span of length
// window. It keeps track of the start times of recent calls. Once the
// budget is exhausted, the next call is delayed until the oldest call
// in the window has aged out.
//
// The returned CallRateLimiter is safe for concurrent use.
func NewSlidingWindowCallRateLimiter(clock clock.Clock, maximumCalls int, window time.Duration) CallRateLimiter {
	callRateLimiterPrometheusMetrics.Do(func() {
		prometheus.MustRegister(callRateLimiterWaitDurationSeconds)
	})

	return &slidingWindowCallRateLimiter{
		clock:        clock,
		maximumCalls: maximumCalls,
		window:       window,
		calls:        make([]time.Time, 0, maximumCalls),
	}
}

func (rl *slidingWindowCallRateLimiter) Wait(ctx context.Context) error {
	var waitStart time.Time
	for {
		rl.lock.Lock()
		now := rl.clock.Now()
		if waitStart.IsZero() {
			waitStart = now
		}

		// Forget about calls that have left the window.
		expired := 0
		for expired < len(rl.calls) && !now.Before(rl.calls[expired].Add(rl.window)) {
			expired++
		}
		rl.calls = append(rl.calls[:0], rl.calls[expired:]...)

		if len(rl.calls) < rl.maximumCalls {
			rl.calls = append(rl.calls, now)
			rl.lock.Unlock()
			callRateLimiterWaitDurationSeconds.Observe(now.Sub(waitStart).Seconds())
			return nil
		}
		delay := rl.calls[0].Add(rl.window).Sub(now)
		rl.lock.Unlock()

		// Budget exhausted. Sleep until the oldest call leaves
		// the window and try again, as other callers may have
		// claimed the freed slot in the meantime.
		timer, timerChannel := rl.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return util.StatusFromContext(ctx)
		case <-timerChannel:
		}
	}
}
