/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import (
	"net/http"
	"time"
)

// Result is the outcome of a submission that reached the API.
type Result struct {
	StatusCode int
	Body       []byte
	// Duration covers the whole call, including the wait for a rate limiter permit.
	Duration time.Duration
}

// Succeeded reports whether the API accepted the document (any 2xx status).
func (r *Result) Succeeded() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
