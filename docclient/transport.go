/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseBodySize limits how much of a response body HTTPTransport reads.
const MaxResponseBodySize = 10 << 20

// Transport delivers an encoded document and returns the response status and body.
// A non-nil error means no response was received.
type Transport interface {
	Send(ctx context.Context, method, url string, header http.Header, body []byte) (statusCode int, respBody []byte, err error)
}

// TransportFunc is an adapter to allow the use of ordinary functions as Transport.
type TransportFunc func(ctx context.Context, method, url string, header http.Header, body []byte) (int, []byte, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, method, url string, header http.Header, body []byte) (int, []byte, error) {
	return f(ctx, method, url, header, body)
}

// HTTPTransport is a Transport over *http.Client.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport creates a new HTTPTransport.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	return &HTTPTransport{Client: client}
}

// Send implements Transport.
func (t *HTTPTransport) Send(
	ctx context.Context, method, url string, header http.Header, body []byte,
) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		req.Header[key] = append([]string(nil), values...)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
