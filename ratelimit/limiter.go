/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/crptkit/docsubmit/log"
	"github.com/crptkit/docsubmit/service"
)

// Opts represents options for FixedWindowLimiter.
type Opts struct {
	Logger           log.FieldLogger
	MetricsCollector MetricsCollector
}

// FixedWindowLimiter admits at most capacity operations per window.
type FixedWindowLimiter struct {
	capacity int
	window   time.Duration
	logger   log.FieldLogger
	metrics  MetricsCollector

	mu        sync.Mutex
	available int
	// notify is closed and replaced every time available grows, waking all blocked Acquire calls.
	notify chan struct{}

	stopReplenishment context.CancelFunc
	replenishmentDone chan struct{}
	shutdownOnce      sync.Once
}

// NewFixedWindowLimiter creates a new limiter and starts its replenishment job.
func NewFixedWindowLimiter(capacity int, window time.Duration) (*FixedWindowLimiter, error) {
	return NewFixedWindowLimiterWithOpts(capacity, window, Opts{})
}

// NewFixedWindowLimiterWithOpts creates a new limiter with an ability to specify a logger and a metrics collector.
// The limiter starts full. Shutdown must be called to stop the replenishment job.
func NewFixedWindowLimiterWithOpts(capacity int, window time.Duration, opts Opts) (*FixedWindowLimiter, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &FixedWindowLimiter{
		capacity:          capacity,
		window:            window,
		logger:            opts.Logger,
		metrics:           opts.MetricsCollector,
		available:         capacity,
		notify:            make(chan struct{}),
		stopReplenishment: cancel,
		replenishmentDone: make(chan struct{}),
	}
	l.metrics.SetAvailable(capacity)

	worker := service.NewPeriodicWorkerWithOpts(service.WorkerFunc(func(ctx context.Context) error {
		l.Replenish()
		return nil
	}), window, l.logger, service.PeriodicWorkerOpts{InitialDelay: window})
	go func() {
		defer close(l.replenishmentDone)
		_ = worker.Run(ctx)
	}()

	return l, nil
}

// Capacity returns the maximum number of admissions per window.
func (l *FixedWindowLimiter) Capacity() int {
	return l.capacity
}

// Window returns the replenishment period.
func (l *FixedWindowLimiter) Window() time.Duration {
	return l.window
}

// Available returns the number of permits that may be acquired without waiting.
func (l *FixedWindowLimiter) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// Acquire blocks until a permit is available and takes it.
// If ctx is done first, *AcquireError wrapping ctx.Err() is returned and no permit is taken.
func (l *FixedWindowLimiter) Acquire(ctx context.Context) error {
	startTime := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			l.metrics.IncCancelled()
			l.metrics.ObserveWait(time.Since(startTime))
			return &AcquireError{Inner: err}
		}

		l.mu.Lock()
		if l.available > 0 {
			l.setAvailable(l.available - 1)
			l.mu.Unlock()
			l.metrics.IncAdmissions()
			l.metrics.ObserveWait(time.Since(startTime))
			return nil
		}
		notify := l.notify
		l.mu.Unlock()

		select {
		case <-ctx.Done():
		case <-notify:
		}
	}
}

// TryAcquire takes a permit if one is available right now and reports whether it did.
func (l *FixedWindowLimiter) TryAcquire() bool {
	l.mu.Lock()
	if l.available == 0 {
		l.mu.Unlock()
		return false
	}
	l.setAvailable(l.available - 1)
	l.mu.Unlock()

	l.metrics.IncAdmissions()
	return true
}

// Release returns a permit. The number of available permits never exceeds capacity,
// so releasing a permit that was already replenished has no effect.
func (l *FixedWindowLimiter) Release() {
	l.mu.Lock()
	if l.available >= l.capacity {
		l.mu.Unlock()
		return
	}
	l.setAvailable(l.available + 1)
	l.wakeWaiters()
	l.mu.Unlock()
}

// Replenish resets the number of available permits to capacity regardless of in-flight operations.
// It is called by the limiter itself at the start of every window.
func (l *FixedWindowLimiter) Replenish() {
	l.mu.Lock()
	prev := l.available
	l.setAvailable(l.capacity)
	if prev < l.capacity {
		l.wakeWaiters()
	}
	l.mu.Unlock()

	l.metrics.IncReplenishments()
	if prev < l.capacity {
		l.logger.Debug("rate limiter window replenished",
			log.Int("permits_restored", l.capacity-prev), log.Int("capacity", l.capacity))
	}
}

// setAvailable must be called under l.mu, so the gauge is updated in the same order as the counter.
func (l *FixedWindowLimiter) setAvailable(n int) {
	l.available = n
	l.metrics.SetAvailable(n)
}

// must be called under l.mu.
func (l *FixedWindowLimiter) wakeWaiters() {
	close(l.notify)
	l.notify = make(chan struct{})
}

// Shutdown stops the replenishment job and waits for it to exit. It is safe to call it more than once.
func (l *FixedWindowLimiter) Shutdown() {
	l.shutdownOnce.Do(func() {
		l.stopReplenishment()
		<-l.replenishmentDone
		l.logger.Debug("rate limiter replenishment stopped")
	})
}
