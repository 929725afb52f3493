/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import "errors"

// Argument errors. They are returned before a rate limiter permit is taken.
var (
	ErrNilDocument    = errors.New("document is nil")
	ErrEmptySignature = errors.New("signature is empty")
	ErrEmptyAuthToken = errors.New("auth token is empty")
)

// TransportError is returned by Submit when the request could not be delivered
// or the response could not be read.
type TransportError struct {
	Inner error
}

func (e *TransportError) Error() string {
	return "send document: " + e.Inner.Error()
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Inner
}

// EncodeError is returned by Submit when the document cannot be serialized.
type EncodeError struct {
	Inner error
}

func (e *EncodeError) Error() string {
	return "encode document: " + e.Inner.Error()
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Inner
}
