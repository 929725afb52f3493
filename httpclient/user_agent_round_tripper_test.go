/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserAgentRoundTripper(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.UserAgent()
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tests := []struct {
		name          string
		strategy      UserAgentUpdateStrategy
		reqUserAgent  string
		wantUserAgent string
	}{
		{name: "set if empty, empty", strategy: UserAgentUpdateStrategySetIfEmpty, wantUserAgent: "docsubmit/v1"},
		{name: "set if empty, not empty", strategy: UserAgentUpdateStrategySetIfEmpty,
			reqUserAgent: "caller/2", wantUserAgent: "caller/2"},
		{name: "append, empty", strategy: UserAgentUpdateStrategyAppend, wantUserAgent: "docsubmit/v1"},
		{name: "append, not empty", strategy: UserAgentUpdateStrategyAppend,
			reqUserAgent: "caller/2", wantUserAgent: "caller/2 docsubmit/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewUserAgentRoundTripper(http.DefaultTransport, "docsubmit/v1")
			rt.UpdateStrategy = tt.strategy
			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			require.NoError(t, err)
			req.Header.Set("User-Agent", tt.reqUserAgent)
			resp, err := (&http.Client{Transport: rt}).Do(req)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
			require.Equal(t, tt.wantUserAgent, gotUserAgent)
		})
	}
}
