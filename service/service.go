/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crptkit/docsubmit/log"
)

// Opts represents an options for Service.
type Opts struct {
	ShutdownSignals []os.Signal
}

// Service starts a unit and stops it in a graceful way by OS signal or context cancellation.
type Service struct {
	Unit    Unit
	Signals chan os.Signal
	Logger  log.FieldLogger
	Opts    Opts
}

// New creates new Service which will start and stop passing unit.
func New(logger log.FieldLogger, unit Unit) *Service {
	return NewWithOpts(logger, unit, Opts{
		ShutdownSignals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(logger log.FieldLogger, unit Unit, opts Opts) *Service {
	if len(opts.ShutdownSignals) == 0 {
		opts.ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return &Service{
		Signals: make(chan os.Signal, 1),
		Unit:    unit,
		Logger:  logger,
		Opts:    opts,
	}
}

// Start wraps StartContext using the background context.
func (s *Service) Start() error {
	return s.StartContext(context.Background())
}

// StartContext starts service unit in the separate goroutine and blocks until a fatal error occurs,
// a shutdown signal is received, ctx is done or, for a BatchUnit, its work is finished.
func (s *Service) StartContext(ctx context.Context) error {
	var unitDone <-chan struct{}
	if batch, ok := s.Unit.(BatchUnit); ok {
		unitDone = batch.Done()
	}

	fatalError := make(chan error, 1)
	go s.Unit.Start(fatalError)

	signal.Notify(s.Signals, s.Opts.ShutdownSignals...)
	defer signal.Stop(s.Signals)

	select {
	case <-ctx.Done():
		s.Logger.Info("context is canceled, service will be stopped")
		return s.stopUnit()
	case err := <-fatalError:
		return s.fatal(err)
	case sig := <-s.Signals:
		s.Logger.Info("service got signal", log.String("signal", sig.String()))
		return s.stopUnit()
	case <-unitDone:
		// A failed batch reports its error before closing Done.
		select {
		case err := <-fatalError:
			return s.fatal(err)
		default:
		}
		s.Logger.Info("service unit finished its work")
		return s.stopUnit()
	}
}

func (s *Service) fatal(err error) error {
	s.Logger.Error("service fatal error", log.Error(err))
	return fmt.Errorf("fatal error: %w", err)
}

func (s *Service) stopUnit() error {
	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	return nil
}
