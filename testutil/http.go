/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// RecordedRequest is a snapshot of a request received by RecordingServer.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// RecordingServer is an httptest.Server that records every received request
// and answers with a configurable status code and body.
type RecordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	status   int
	body     []byte
	delay    time.Duration
}

// NewRecordingServer starts a RecordingServer answering with the given status and body.
// The caller must Close the server.
func NewRecordingServer(status int, body string) *RecordingServer {
	rs := &RecordingServer{status: status, body: []byte(body)}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.handle))
	return rs
}

// SetResponse changes the response for subsequent requests.
func (rs *RecordingServer) SetResponse(status int, body string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.status, rs.body = status, []byte(body)
}

// SetDelay makes the server wait before answering. The wait is interrupted if the client goes away.
func (rs *RecordingServer) SetDelay(d time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.delay = d
}

// Requests returns a copy of all recorded requests.
func (rs *RecordingServer) Requests() []RecordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]RecordedRequest(nil), rs.requests...)
}

func (rs *RecordingServer) handle(rw http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	rs.mu.Lock()
	rs.requests = append(rs.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	status, respBody, delay := rs.status, rs.body, rs.delay
	rs.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_, _ = rw.Write(respBody)
}
