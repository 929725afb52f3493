/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package netutil contains network helpers shared by the HTTP transport.
package netutil

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// NewCustomDNSResolver creates a resolver that sends DNS queries to the given servers ("host:port")
// in round-robin order instead of the servers configured in the system.
func NewCustomDNSResolver(addrs []string, timeout time.Duration) (*net.Resolver, error) {
	if len(addrs) == 0 {
		return nil, errors.New("at least one DNS server address is required")
	}
	for _, addr := range addrs {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, err
		}
	}

	var idx atomic.Uint32
	addrsLen := uint32(len(addrs)) //nolint:gosec // address count is reasonable
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, "udp", addrs[idx.Add(1)%addrsLen])
		},
	}, nil
}
