/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds *http.Client instances with a chain of round trippers
// for logging, metrics, User-Agent and X-Request-ID headers.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/crptkit/docsubmit/internal/libinfo"
	"github.com/crptkit/docsubmit/log"
	"github.com/crptkit/docsubmit/netutil"
)

// DefaultRequestType is used in logs and metrics when no request type is specified.
const DefaultRequestType = "generic"

// Opts provides options for NewWithOpts.
type Opts struct {
	// RequestType is a type of request, e.g. "create-document".
	RequestType string

	// Delegate is the innermost RoundTripper. A clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper

	// Logger is used by the logging round tripper when the request context has no logger.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestIDProvider is a function that provides a request ID.
	RequestIDProvider func(ctx context.Context) string

	// Collector is a metrics collector. Required when metrics are enabled in the config.
	Collector MetricsCollector
}

// New creates a new *http.Client configured by cfg.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new *http.Client configured by cfg.
// Outgoing requests pass the request id, user agent, metrics and logging round trippers (in that order).
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if opts.RequestType == "" {
		opts.RequestType = DefaultRequestType
	}

	delegate := opts.Delegate
	if delegate == nil {
		var err error
		if delegate, err = newDefaultTransport(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Logger.Enabled {
		logOpts := cfg.Logger.TransportOpts()
		logOpts.Logger = opts.Logger
		logOpts.LoggerProvider = opts.LoggerProvider
		delegate = NewLoggingRoundTripperWithOpts(delegate, opts.RequestType, logOpts)
	}

	if cfg.Metrics.Enabled {
		if opts.Collector == nil {
			return nil, errors.New("metrics are enabled but no metrics collector is specified")
		}
		delegate = NewMetricsRoundTripperWithOpts(delegate, MetricsRoundTripperOpts{
			RequestType: opts.RequestType,
			Collector:   opts.Collector,
		})
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = libinfo.UserAgent()
	}
	delegate = NewUserAgentRoundTripper(delegate, userAgent)

	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// newDefaultTransport clones http.DefaultTransport and points its dialer to the custom DNS servers if any.
func newDefaultTransport(cfg *Config) (*http.Transport, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if len(cfg.DNS.Servers) == 0 {
		return tr, nil
	}
	dnsTimeout := cfg.DNS.Timeout
	if dnsTimeout == 0 {
		dnsTimeout = DefaultDNSTimeout
	}
	resolver, err := netutil.NewCustomDNSResolver(cfg.DNS.Servers, dnsTimeout)
	if err != nil {
		return nil, fmt.Errorf("create DNS resolver: %w", err)
	}
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second, Resolver: resolver}
	tr.DialContext = dialer.DialContext
	return tr, nil
}
