/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

// Unit is a part of the application that Service starts and stops.
type Unit interface {
	// Start runs the unit and may block for its whole lifetime.
	// Failures are reported to fatalErr; nothing is written there on success.
	Start(fatalErr chan<- error)

	// Stop halts the unit. With gracefully set, in-flight work (e.g. a document being sent) is awaited.
	// Stop may be called even if Start failed or was never called.
	Stop(gracefully bool) error
}

// BatchUnit is a Unit that does a finite amount of work, like submitting a set of documents.
// Service returns as soon as Done is closed instead of waiting for a shutdown signal.
// A nil channel from Done means the unit runs until it is stopped.
type BatchUnit interface {
	Unit
	Done() <-chan struct{}
}
