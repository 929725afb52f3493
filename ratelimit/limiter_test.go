/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/crptkit/docsubmit/log/logtest"
	"github.com/crptkit/docsubmit/testutil"
)

func newTestLimiter(t *testing.T, capacity int, window time.Duration) *FixedWindowLimiter {
	t.Helper()
	l, err := NewFixedWindowLimiter(capacity, window)
	require.NoError(t, err)
	t.Cleanup(l.Shutdown)
	return l
}

func TestNewFixedWindowLimiter(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		window   time.Duration
		wantErr  error
	}{
		{name: "zero capacity", capacity: 0, window: time.Second, wantErr: ErrInvalidCapacity},
		{name: "negative capacity", capacity: -1, window: time.Second, wantErr: ErrInvalidCapacity},
		{name: "zero window", capacity: 1, window: 0, wantErr: ErrInvalidWindow},
		{name: "negative window", capacity: 1, window: -time.Second, wantErr: ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewFixedWindowLimiter(tt.capacity, tt.window)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, l)
		})
	}

	l := newTestLimiter(t, 3, time.Minute)
	require.Equal(t, 3, l.Capacity())
	require.Equal(t, time.Minute, l.Window())
	require.Equal(t, 3, l.Available())
}

func TestFixedWindowLimiter_CapacityBound(t *testing.T) {
	l := newTestLimiter(t, 3, time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	require.Equal(t, 0, l.Available())
	require.False(t, l.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()
	err := l.Acquire(ctx)
	var acquireErr *AcquireError
	require.ErrorAs(t, err, &acquireErr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, l.Available())
}

func TestFixedWindowLimiter_AdmissionsPerWindow(t *testing.T) {
	const capacity = 5
	const callers = 20

	l := newTestLimiter(t, capacity, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admitted := atomic.NewInt32(0)
	cancelled := atomic.NewInt32(0)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(ctx); err != nil {
				cancelled.Inc()
				return
			}
			admitted.Inc()
		}()
	}

	require.Eventually(t, func() bool { return admitted.Load() == capacity }, time.Second, time.Millisecond*5)
	time.Sleep(time.Millisecond * 50)
	require.Equal(t, int32(capacity), admitted.Load(), "no admissions beyond capacity within a window")

	l.Replenish()
	require.Eventually(t, func() bool { return admitted.Load() == 2*capacity }, time.Second, time.Millisecond*5)
	time.Sleep(time.Millisecond * 50)
	require.Equal(t, int32(2*capacity), admitted.Load())

	cancel()
	wg.Wait()
	require.Equal(t, int32(callers-2*capacity), cancelled.Load())
	require.Equal(t, 0, l.Available())
}

func TestFixedWindowLimiter_ReleaseUnblocksWaiter(t *testing.T) {
	l := newTestLimiter(t, 1, time.Hour)
	require.NoError(t, l.Acquire(context.Background()))

	acquired := make(chan error, 1)
	go func() {
		acquired <- l.Acquire(context.Background())
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire must block while no permits are available")
	case <-time.After(time.Millisecond * 50):
	}

	l.Release()

	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Acquire was not unblocked by Release")
	}
	require.Equal(t, 0, l.Available())
}

func TestFixedWindowLimiter_ReleaseIsCapped(t *testing.T) {
	l := newTestLimiter(t, 2, time.Hour)

	l.Release()
	require.Equal(t, 2, l.Available())

	require.True(t, l.TryAcquire())
	l.Replenish()
	l.Release() // permit of the previous window
	require.Equal(t, 2, l.Available())
}

func TestFixedWindowLimiter_ReplenishIgnoresInFlight(t *testing.T) {
	l := newTestLimiter(t, 2, time.Millisecond*100)

	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))
	require.Equal(t, 0, l.Available())

	// Neither permit is released, but the next window restores full capacity.
	require.Eventually(t, func() bool { return l.Available() == 2 }, time.Second*2, time.Millisecond*10)
}

func TestFixedWindowLimiter_BlockedAcquireProceedsInNextWindow(t *testing.T) {
	l := newTestLimiter(t, 1, time.Millisecond*100)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	startTime := time.Now()
	require.NoError(t, l.Acquire(ctx))
	require.Less(t, time.Since(startTime), time.Second*2)
}

func TestFixedWindowLimiter_CancellationDoesNotLeakPermits(t *testing.T) {
	t.Run("cancel blocked acquire", func(t *testing.T) {
		l := newTestLimiter(t, 1, time.Hour)
		require.NoError(t, l.Acquire(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		acquired := make(chan error, 1)
		go func() {
			acquired <- l.Acquire(ctx)
		}()
		time.Sleep(time.Millisecond * 20)
		cancel()

		select {
		case err := <-acquired:
			require.ErrorIs(t, err, context.Canceled)
			var acquireErr *AcquireError
			require.True(t, errors.As(err, &acquireErr))
		case <-time.After(time.Second):
			t.Fatal("cancelled Acquire did not return")
		}

		l.Release()
		require.Equal(t, 1, l.Available(), "cancelled waiter must not consume the released permit")
	})

	t.Run("already cancelled context", func(t *testing.T) {
		l := newTestLimiter(t, 2, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.ErrorIs(t, l.Acquire(ctx), context.Canceled)
		require.Equal(t, 2, l.Available())
	})
}

func TestFixedWindowLimiter_Shutdown(t *testing.T) {
	l, err := NewFixedWindowLimiter(1, time.Millisecond*20)
	require.NoError(t, err)

	l.Shutdown()
	l.Shutdown()

	require.True(t, l.TryAcquire())
	time.Sleep(time.Millisecond * 100)
	require.Equal(t, 0, l.Available(), "no replenishment after shutdown")

	l.Release()
	require.Equal(t, 1, l.Available())
	require.NoError(t, l.Acquire(context.Background()))
}

func TestFixedWindowLimiter_ConcurrentAcquireRelease(t *testing.T) {
	const capacity = 4
	l := newTestLimiter(t, capacity, time.Millisecond*5)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := l.Acquire(context.Background()); err != nil {
					t.Error(err)
					return
				}
				if avail := l.Available(); avail < 0 || avail > capacity {
					t.Errorf("available permits out of range: %d", avail)
				}
				l.Release()
			}
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, l.Available(), capacity)
}

func TestFixedWindowLimiter_Metrics(t *testing.T) {
	mc := NewPrometheusMetricsCollector("test", "documents")
	l, err := NewFixedWindowLimiterWithOpts(2, time.Hour, Opts{MetricsCollector: mc})
	require.NoError(t, err)
	defer l.Shutdown()

	testutil.RequireGaugeValue(t, mc.Available, 2)

	require.NoError(t, l.Acquire(context.Background()))
	require.True(t, l.TryAcquire())
	testutil.RequireGaugeValue(t, mc.Available, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, l.Acquire(ctx))

	l.Replenish()

	testutil.RequireSamplesCountInCounter(t, mc.Admissions, 2)
	testutil.RequireSamplesCountInCounter(t, mc.Cancelled, 1)
	testutil.RequireSamplesCountInCounter(t, mc.Replenishments, 1)
	testutil.RequireSamplesCountInHistogram(t, mc.WaitDurations, 2)
	testutil.RequireGaugeValue(t, mc.Available, 2)
}

// availableGaugeRecorder keeps the last value published for the available permits.
type availableGaugeRecorder struct {
	disabledMetrics
	last atomic.Int64
}

func (r *availableGaugeRecorder) SetAvailable(n int) {
	r.last.Store(int64(n))
}

func TestFixedWindowLimiter_AvailableGaugeFollowsCounter(t *testing.T) {
	const capacity = 3
	gauge := &availableGaugeRecorder{}
	l, err := NewFixedWindowLimiterWithOpts(capacity, time.Hour, Opts{MetricsCollector: gauge})
	require.NoError(t, err)
	defer l.Shutdown()

	for iteration := 0; iteration < 200; iteration++ {
		var wg sync.WaitGroup
		for i := 0; i < capacity; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = l.TryAcquire()
			}()
			go func() {
				defer wg.Done()
				l.Replenish()
			}()
		}
		wg.Wait()
		require.Equal(t, int64(l.Available()), gauge.last.Load(), "iteration %d", iteration)
	}
}

func TestFixedWindowLimiter_Logging(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	l, err := NewFixedWindowLimiterWithOpts(1, time.Hour, Opts{Logger: logRecorder})
	require.NoError(t, err)

	require.True(t, l.TryAcquire())
	l.Replenish()
	entry, found := logRecorder.FindEntry("rate limiter window replenished")
	require.True(t, found)
	field, found := entry.FindField("permits_restored")
	require.True(t, found)
	require.Equal(t, int64(1), field.Int)

	l.Shutdown()
	_, found = logRecorder.FindEntry("rate limiter replenishment stopped")
	require.True(t, found)
}
