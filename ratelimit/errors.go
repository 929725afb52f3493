/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import "errors"

// ErrInvalidCapacity is returned when the limiter is constructed with non-positive capacity.
var ErrInvalidCapacity = errors.New("capacity must be positive")

// ErrInvalidWindow is returned when the limiter is constructed with non-positive window.
var ErrInvalidWindow = errors.New("window must be positive")

// AcquireError is returned by Acquire when the context is done before a permit was granted.
// No permit is held by the caller in this case.
type AcquireError struct {
	Inner error
}

func (e *AcquireError) Error() string {
	return "wait for rate limiter permit: " + e.Inner.Error()
}

// Unwrap returns the context error.
func (e *AcquireError) Unwrap() error {
	return e.Inner
}
