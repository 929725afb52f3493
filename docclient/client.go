/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/crptkit/docsubmit/httpclient"
	"github.com/crptkit/docsubmit/log"
	"github.com/crptkit/docsubmit/ratelimit"
)

// RequestType identifies document creation requests in HTTP client logs and metrics.
const RequestType = "create-document"

// ResponseHandler is called with the body of every accepted (2xx) response.
type ResponseHandler func(ctx context.Context, body []byte)

// Opts represents options for the Client.
type Opts struct {
	// Transport delivers requests. By default, HTTPTransport over a client built by httpclient.NewWithOpts is used.
	Transport Transport

	// Encoder serializes documents. JSONEncoder is used by default.
	Encoder Encoder

	// ResponseHandler receives bodies of accepted responses.
	ResponseHandler ResponseHandler

	Logger                  log.FieldLogger
	MetricsCollector        MetricsCollector
	LimiterMetricsCollector ratelimit.MetricsCollector

	// HTTPClientOpts are passed to httpclient.NewWithOpts when the default transport is built.
	HTTPClientOpts httpclient.Opts
}

// Client submits documents to the registration API, at most RateLimit.RequestLimit per RateLimit.Window.
// It is safe for concurrent use. Shutdown must be called when the client is no longer needed.
type Client struct {
	apiURL     string
	limiter    *ratelimit.FixedWindowLimiter
	transport  Transport
	encoder    Encoder
	onResponse ResponseHandler
	logger     log.FieldLogger
	metrics    MetricsCollector
}

// New creates a new Client with default options.
func New(cfg *Config) (*Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new Client.
func NewWithOpts(cfg *Config, opts Opts) (*Client, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document client config: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.Encoder == nil {
		opts.Encoder = JSONEncoder{}
	}
	if opts.ResponseHandler == nil {
		opts.ResponseHandler = func(context.Context, []byte) {}
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}

	if opts.Transport == nil {
		httpOpts := opts.HTTPClientOpts
		if httpOpts.RequestType == "" {
			httpOpts.RequestType = RequestType
		}
		if httpOpts.Logger == nil {
			httpOpts.Logger = opts.Logger
		}
		httpClient, err := httpclient.NewWithOpts(cfg.HTTP, httpOpts)
		if err != nil {
			return nil, fmt.Errorf("create http client: %w", err)
		}
		opts.Transport = NewHTTPTransport(httpClient)
	}

	limiter, err := ratelimit.NewFixedWindowLimiterWithOpts(cfg.RateLimit.RequestLimit, cfg.RateLimit.Window, ratelimit.Opts{
		Logger:           opts.Logger.With(log.String("component", "rate-limiter")),
		MetricsCollector: opts.LimiterMetricsCollector,
	})
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	return &Client{
		apiURL:     cfg.APIURL,
		limiter:    limiter,
		transport:  opts.Transport,
		encoder:    opts.Encoder,
		onResponse: opts.ResponseHandler,
		logger:     opts.Logger,
		metrics:    opts.MetricsCollector,
	}, nil
}

// Limiter returns the rate limiter of the client.
func (c *Client) Limiter() *ratelimit.FixedWindowLimiter {
	return c.limiter
}

// Submit sends the document to the API.
//
// It blocks while the rate limit of the current window is exhausted.
// A response with a non-2xx status is not an error: it is returned as a Result whose Succeeded is false.
// The returned error is one of the argument errors (ErrNilDocument, ErrEmptySignature, ErrEmptyAuthToken),
// *ratelimit.AcquireError if ctx is done before a permit was taken, *EncodeError or *TransportError.
// Submit never retries.
func (c *Client) Submit(ctx context.Context, doc *Document, signature, authToken string) (*Result, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if signature == "" {
		return nil, ErrEmptySignature
	}
	if authToken == "" {
		return nil, ErrEmptyAuthToken
	}

	startTime := time.Now()
	logger := c.logger.With(log.String("doc_id", doc.DocID))

	if err := c.limiter.Acquire(ctx); err != nil {
		c.metrics.SubmissionDone(OutcomeCancelled, time.Since(startTime))
		logger.Warn("document submission cancelled while waiting for rate limiter", log.Error(err))
		return nil, err
	}
	defer c.limiter.Release()

	body, err := c.encoder.Encode(doc)
	if err != nil {
		c.metrics.SubmissionDone(OutcomeEncodeError, time.Since(startTime))
		logger.Error("failed to encode document", log.Error(err))
		return nil, &EncodeError{Inner: err}
	}

	header := make(http.Header, 3)
	header.Set("Content-Type", "application/json")
	header.Set("Signature", signature)
	header.Set("Authorization", "Bearer "+authToken)

	statusCode, respBody, err := c.transport.Send(ctx, http.MethodPost, c.apiURL, header, body)
	if err != nil {
		c.metrics.SubmissionDone(OutcomeTransportError, time.Since(startTime))
		logger.Error("failed to send document", log.Error(err))
		return nil, &TransportError{Inner: err}
	}

	result := &Result{StatusCode: statusCode, Body: respBody, Duration: time.Since(startTime)}
	if !result.Succeeded() {
		c.metrics.SubmissionDone(OutcomeRejected, result.Duration)
		logger.Warn("document rejected by API",
			log.Int("status", statusCode), log.Bytes("response", respBody), log.DurationIn(result.Duration, time.Millisecond))
		return result, nil
	}

	c.metrics.SubmissionDone(OutcomeAccepted, result.Duration)
	logger.Info("document accepted by API",
		log.Int("status", statusCode), log.DurationIn(result.Duration, time.Millisecond))
	c.onResponse(ctx, respBody)
	return result, nil
}

// Shutdown stops the rate limiter replenishment. It is safe to call it more than once.
// Submissions blocked after Shutdown are unblocked only by releases of in-flight submissions.
func (c *Client) Shutdown() {
	c.limiter.Shutdown()
}
