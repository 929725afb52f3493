/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"time"

	"github.com/crptkit/docsubmit/log"
)

// ErrWorkerUnitStopTimeoutExceeded is returned by WorkerUnit.Stop when Run does not return within GracefulStopTimeout.
var ErrWorkerUnitStopTimeoutExceeded = errors.New("worker unit stop timeout exceeded")

// WorkerUnitOpts contains optional parameters for constructing WorkerUnit.
type WorkerUnitOpts struct {
	// Batch marks a worker whose Run returns once its work is done.
	// Service then exits without waiting for a signal (see BatchUnit).
	Batch bool

	// GracefulStopTimeout limits how long Stop(true) waits for Run to return. Zero means no limit.
	GracefulStopTimeout time.Duration

	Logger log.FieldLogger
}

// WorkerUnit runs a Worker as a Unit. Stop cancels the context passed to Run.
type WorkerUnit struct {
	worker    Worker
	opts      WorkerUnitOpts
	logger    log.FieldLogger
	ctx       context.Context
	ctxCancel context.CancelFunc
	runDone   chan struct{}
}

var _ BatchUnit = (*WorkerUnit)(nil)

// NewWorkerUnit creates a WorkerUnit for a long-running worker.
func NewWorkerUnit(worker Worker) *WorkerUnit {
	return NewWorkerUnitWithOpts(worker, WorkerUnitOpts{})
}

// NewWorkerUnitWithOpts creates a WorkerUnit with an ability to mark it as a batch and limit the graceful stop.
func NewWorkerUnitWithOpts(worker Worker, opts WorkerUnitOpts) *WorkerUnit {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	ctx, ctxCancel := context.WithCancel(context.Background())
	return &WorkerUnit{
		worker:    worker,
		opts:      opts,
		logger:    opts.Logger,
		ctx:       ctx,
		ctxCancel: ctxCancel,
		runDone:   make(chan struct{}),
	}
}

// Start calls Run of the underlying Worker and blocks until it returns.
func (u *WorkerUnit) Start(fatalError chan<- error) {
	defer close(u.runDone)
	if err := u.worker.Run(u.ctx); err != nil {
		fatalError <- err
	}
}

// Done is closed when Run of a batch worker returns. It is nil for long-running workers.
func (u *WorkerUnit) Done() <-chan struct{} {
	if !u.opts.Batch {
		return nil
	}
	return u.runDone
}

// Stop cancels the worker's context and, if gracefully is set, waits for Run to return.
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.ctxCancel()
	if !gracefully {
		return nil
	}
	if u.opts.GracefulStopTimeout == 0 {
		<-u.runDone
		return nil
	}
	select {
	case <-u.runDone:
		return nil
	case <-time.After(u.opts.GracefulStopTimeout):
		u.logger.Warn("worker did not stop in time", log.Duration("timeout", u.opts.GracefulStopTimeout))
		return ErrWorkerUnitStopTimeoutExceeded
	}
}
