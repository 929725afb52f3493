/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/crptkit/docsubmit/log"
)

func TestPeriodicWorker_Run(t *testing.T) {
	t.Run("run and stop by context timeout", func(t *testing.T) {
		const iterations = 5

		c := atomic.NewInt32(0)
		periodicWorker := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			c.Inc()
			return nil
		}), time.Millisecond*100, log.NewDisabledLogger())

		ctx, ctxCancel := context.WithTimeout(context.Background(), time.Millisecond*100*iterations+time.Millisecond*50)
		defer ctxCancel()

		runErr := make(chan error)
		go func() {
			runErr <- periodicWorker.Run(ctx)
		}()
		require.NoError(t, <-runErr)
		require.GreaterOrEqual(t, c.Load(), int32(iterations-1))
		require.LessOrEqual(t, c.Load(), int32(iterations+1))
		require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	})

	t.Run("run and stop by ErrPeriodicWorkerStop", func(t *testing.T) {
		c := atomic.NewInt32(0)
		periodicWorker := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			if c.Inc() == 2 {
				return ErrPeriodicWorkerStop
			}
			return nil
		}), time.Millisecond*50, log.NewDisabledLogger())
		ctx, ctxCancel := context.WithTimeout(context.Background(), time.Minute)
		defer ctxCancel()

		require.NoError(t, periodicWorker.Run(ctx))
		require.Equal(t, int32(2), c.Load())
		require.NoError(t, ctx.Err())
	})

	t.Run("non-stop error does not interrupt the loop", func(t *testing.T) {
		c := atomic.NewInt32(0)
		periodicWorker := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			switch c.Inc() {
			case 1:
				return errors.New("non-stop error")
			case 3:
				return ErrPeriodicWorkerStop
			}
			return nil
		}), time.Millisecond*20, log.NewDisabledLogger())

		require.NoError(t, periodicWorker.Run(context.Background()))
		require.Equal(t, int32(3), c.Load())
	})

	t.Run("initial delay postpones the first run", func(t *testing.T) {
		c := atomic.NewInt32(0)
		periodicWorker := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			c.Inc()
			return nil
		}), time.Millisecond*50, log.NewDisabledLogger(), PeriodicWorkerOpts{InitialDelay: time.Second * 10})

		ctx, ctxCancel := context.WithTimeout(context.Background(), time.Millisecond*200)
		defer ctxCancel()

		require.NoError(t, periodicWorker.Run(ctx))
		require.Equal(t, int32(0), c.Load())
	})
}
