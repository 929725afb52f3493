/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/crptkit/docsubmit/log"
	"github.com/crptkit/docsubmit/log/logtest"
	"github.com/crptkit/docsubmit/ratelimit"
	"github.com/crptkit/docsubmit/testutil"
)

func newTestDocument() *Document {
	return &Document{
		Description:    Description{ParticipantInn: "7700000000"},
		DocID:          "doc-1",
		DocStatus:      "NEW",
		DocType:        "LP_INTRODUCE_GOODS",
		OwnerInn:       "7700000001",
		ParticipantInn: "7700000000",
		ProducerInn:    "7700000002",
		ProductionDate: "2025-01-20",
		ProductionType: "OWN_PRODUCTION",
		Products: []Product{{
			CertificateDocument:       "CONFORMITY_CERTIFICATE",
			CertificateDocumentDate:   "2025-01-10",
			CertificateDocumentNumber: "RU-123",
			OwnerInn:                  "7700000001",
			ProducerInn:               "7700000002",
			ProductionDate:            "2025-01-20",
			TnvedCode:                 "6401100000",
			UitCode:                   "010460043993125621JgXJ5.T",
		}},
		RegDate:   "2025-01-21",
		RegNumber: "42",
	}
}

func newTestClient(t *testing.T, requestLimit int, window time.Duration, opts Opts) *Client {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.APIURL = "http://registry.test/api/v3/lk/documents/create"
	cfg.RateLimit = RateLimitConfig{Window: window, RequestLimit: requestLimit}
	c, err := NewWithOpts(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	return c
}

func staticTransport(status int, body string) TransportFunc {
	return func(ctx context.Context, method, url string, header http.Header, reqBody []byte) (int, []byte, error) {
		return status, []byte(body), nil
	}
}

func TestClient_Submit_Accepted(t *testing.T) {
	srv := testutil.NewRecordingServer(http.StatusOK, `{"value":"b5fd4d27"}`)
	defer srv.Close()

	var handledBodies [][]byte
	logRecorder := logtest.NewRecorder()
	cfg := NewDefaultConfig()
	cfg.APIURL = srv.URL + "/api/v3/lk/documents/create"
	cfg.RateLimit.RequestLimit = 2
	c, err := NewWithOpts(cfg, Opts{
		Logger: logRecorder,
		ResponseHandler: func(ctx context.Context, body []byte) {
			handledBodies = append(handledBodies, body)
		},
	})
	require.NoError(t, err)
	defer c.Shutdown()

	doc := newTestDocument()
	result, err := c.Submit(context.Background(), doc, "c2lnbmF0dXJl", "token-123")
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, `{"value":"b5fd4d27"}`, string(result.Body))
	require.Equal(t, [][]byte{[]byte(`{"value":"b5fd4d27"}`)}, handledBodies)
	require.Equal(t, 2, c.Limiter().Available(), "permit must be released")

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPost, reqs[0].Method)
	require.Equal(t, "/api/v3/lk/documents/create", reqs[0].Path)
	require.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	require.Equal(t, "c2lnbmF0dXJl", reqs[0].Header.Get("Signature"))
	require.Equal(t, "Bearer token-123", reqs[0].Header.Get("Authorization"))

	var sentDoc Document
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sentDoc))
	require.Equal(t, *doc, sentDoc)

	entry, found := logRecorder.FindEntry("document accepted by API")
	require.True(t, found)
	docIDField, found := entry.FindField("doc_id")
	require.True(t, found)
	require.Equal(t, "doc-1", string(docIDField.Bytes))
}

func TestClient_Submit_Rejected(t *testing.T) {
	srv := testutil.NewRecordingServer(http.StatusUnauthorized, `{"error":"Unauthorized"}`)
	defer srv.Close()

	handlerCalled := false
	logRecorder := logtest.NewRecorder()
	cfg := NewDefaultConfig()
	cfg.APIURL = srv.URL
	c, err := NewWithOpts(cfg, Opts{
		Logger:          logRecorder,
		ResponseHandler: func(context.Context, []byte) { handlerCalled = true },
	})
	require.NoError(t, err)
	defer c.Shutdown()

	result, err := c.Submit(context.Background(), newTestDocument(), "sig", "expired-token")
	require.NoError(t, err, "non-2xx status is reported through the result")
	require.False(t, result.Succeeded())
	require.Equal(t, http.StatusUnauthorized, result.StatusCode)
	require.Equal(t, `{"error":"Unauthorized"}`, string(result.Body))
	require.False(t, handlerCalled)
	require.Equal(t, 1, c.Limiter().Available())
	require.Len(t, srv.Requests(), 1, "no retries")

	entry, found := logRecorder.FindEntry("document rejected by API")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
}

func TestClient_Submit_TransportError(t *testing.T) {
	sendErr := errors.New("connection refused")
	calls := atomic.NewInt32(0)
	c := newTestClient(t, 1, time.Hour, Opts{
		Transport: TransportFunc(func(context.Context, string, string, http.Header, []byte) (int, []byte, error) {
			calls.Inc()
			return 0, nil, sendErr
		}),
	})

	result, err := c.Submit(context.Background(), newTestDocument(), "sig", "token")
	require.Nil(t, result)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.ErrorIs(t, err, sendErr)
	require.Equal(t, int32(1), calls.Load(), "no retries")
	require.Equal(t, 1, c.Limiter().Available())
}

func TestClient_Submit_EncodeError(t *testing.T) {
	encodeErr := errors.New("unsupported value")
	c := newTestClient(t, 1, time.Hour, Opts{
		Transport: staticTransport(http.StatusOK, ""),
		Encoder:   EncoderFunc(func(*Document) ([]byte, error) { return nil, encodeErr }),
	})

	_, err := c.Submit(context.Background(), newTestDocument(), "sig", "token")
	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	require.ErrorIs(t, err, encodeErr)
	require.Equal(t, 1, c.Limiter().Available())
}

func TestClient_Submit_InvalidArguments(t *testing.T) {
	calls := atomic.NewInt32(0)
	c := newTestClient(t, 1, time.Hour, Opts{
		Transport: TransportFunc(func(context.Context, string, string, http.Header, []byte) (int, []byte, error) {
			calls.Inc()
			return http.StatusOK, nil, nil
		}),
	})
	require.True(t, c.Limiter().TryAcquire(), "arguments are validated without waiting for a permit")

	tests := []struct {
		name      string
		doc       *Document
		signature string
		token     string
		wantErr   error
	}{
		{name: "nil document", doc: nil, signature: "sig", token: "token", wantErr: ErrNilDocument},
		{name: "empty signature", doc: newTestDocument(), signature: "", token: "token", wantErr: ErrEmptySignature},
		{name: "empty token", doc: newTestDocument(), signature: "sig", token: "", wantErr: ErrEmptyAuthToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Submit(context.Background(), tt.doc, tt.signature, tt.token)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	require.Equal(t, int32(0), calls.Load())
	require.Equal(t, 0, c.Limiter().Available())
}

func TestClient_Submit_BackToBack(t *testing.T) {
	c := newTestClient(t, 1, time.Hour, Opts{Transport: staticTransport(http.StatusOK, "{}")})

	// Submissions come from different goroutines but never overlap, so one permit serves both.
	for i := 0; i < 2; i++ {
		done := make(chan error, 1)
		go func() {
			result, err := c.Submit(context.Background(), newTestDocument(), "sig", "token")
			if err == nil && !result.Succeeded() {
				err = errors.New("submission was not accepted")
			}
			done <- err
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatalf("submission %d blocked although the previous one released its permit", i+1)
		}
	}
	require.Equal(t, 1, c.Limiter().Available())
}

func TestClient_Submit_PermitHeldDuringSend(t *testing.T) {
	sending := make(chan struct{})
	finish := make(chan struct{})
	c := newTestClient(t, 1, time.Hour, Opts{
		Transport: TransportFunc(func(context.Context, string, string, http.Header, []byte) (int, []byte, error) {
			close(sending)
			<-finish
			return http.StatusOK, nil, nil
		}),
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), newTestDocument(), "sig", "token")
		done <- err
	}()
	<-sending
	require.Equal(t, 0, c.Limiter().Available())

	acquired := make(chan error, 1)
	go func() {
		acquired <- c.Limiter().Acquire(context.Background())
	}()
	select {
	case err := <-acquired:
		t.Fatalf("acquire must block while the submission is in flight, got %v", err)
	case <-time.After(time.Millisecond * 100):
	}

	close(finish)
	require.NoError(t, <-done)
	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire is still blocked after the submission released its permit")
	}
	require.Equal(t, 0, c.Limiter().Available())
	c.Limiter().Release()
}

func TestClient_Submit_CancelledWhileWaiting(t *testing.T) {
	calls := atomic.NewInt32(0)
	c := newTestClient(t, 1, time.Hour, Opts{
		Transport: TransportFunc(func(context.Context, string, string, http.Header, []byte) (int, []byte, error) {
			calls.Inc()
			return http.StatusOK, nil, nil
		}),
	})
	require.True(t, c.Limiter().TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()
	result, err := c.Submit(ctx, newTestDocument(), "sig", "token")
	require.Nil(t, result)
	var acquireErr *ratelimit.AcquireError
	require.ErrorAs(t, err, &acquireErr)
	testutil.RequireErrorIsAny(t, err, []error{context.DeadlineExceeded, context.Canceled})
	require.Equal(t, int32(0), calls.Load())

	c.Limiter().Release()
	require.Equal(t, 1, c.Limiter().Available(), "cancelled submission must not hold a permit")
}

func TestClient_Submit_AdmissionsPerWindow(t *testing.T) {
	const requestLimit = 3
	inFlight := make(chan struct{})
	sent := atomic.NewInt32(0)
	c := newTestClient(t, requestLimit, time.Hour, Opts{
		Transport: TransportFunc(func(ctx context.Context, _ string, _ string, _ http.Header, _ []byte) (int, []byte, error) {
			sent.Inc()
			<-inFlight
			return http.StatusOK, nil, nil
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	cancelled := atomic.NewInt32(0)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Submit(ctx, newTestDocument(), "sig", "token"); err != nil {
				cancelled.Inc()
			}
		}()
	}

	require.Eventually(t, func() bool { return sent.Load() == requestLimit }, time.Second, time.Millisecond*5)
	time.Sleep(time.Millisecond * 50)
	require.Equal(t, int32(requestLimit), sent.Load())

	// The next window admits more requests even though none of the previous ones has finished.
	c.Limiter().Replenish()
	require.Eventually(t, func() bool { return sent.Load() == 2*requestLimit }, time.Second, time.Millisecond*5)

	cancel()
	close(inFlight)
	wg.Wait()
	require.Equal(t, int32(10-2*requestLimit), cancelled.Load())
}

func TestClient_Submit_ResponseHandlerPanic(t *testing.T) {
	c := newTestClient(t, 1, time.Hour, Opts{
		Transport:       staticTransport(http.StatusCreated, "{}"),
		ResponseHandler: func(context.Context, []byte) { panic("handler failed") },
	})

	require.Panics(t, func() {
		_, _ = c.Submit(context.Background(), newTestDocument(), "sig", "token")
	})
	require.Equal(t, 1, c.Limiter().Available())
}

func TestClient_Submit_Metrics(t *testing.T) {
	mc := NewPrometheusMetricsCollector("test")
	limiterMC := ratelimit.NewPrometheusMetricsCollector("test", "documents")
	status := atomic.NewInt32(http.StatusOK)
	c := newTestClient(t, 1, time.Hour, Opts{
		Transport: TransportFunc(func(context.Context, string, string, http.Header, []byte) (int, []byte, error) {
			return int(status.Load()), nil, nil
		}),
		MetricsCollector:        mc,
		LimiterMetricsCollector: limiterMC,
	})

	_, err := c.Submit(context.Background(), newTestDocument(), "sig", "token")
	require.NoError(t, err)
	status.Store(http.StatusBadRequest)
	_, err = c.Submit(context.Background(), newTestDocument(), "sig", "token")
	require.NoError(t, err)

	testutil.RequireSamplesCountInCounter(t, mc.Submissions.WithLabelValues(OutcomeAccepted), 1)
	testutil.RequireSamplesCountInCounter(t, mc.Submissions.WithLabelValues(OutcomeRejected), 1)
	testutil.RequireSamplesCountInCounter(t, limiterMC.Admissions, 2)
	testutil.RequireGaugeValue(t, limiterMC.Available, 1)
}

func TestClient_Shutdown(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	c := newTestClient(t, 1, time.Millisecond*10, Opts{Transport: staticTransport(http.StatusOK, ""), Logger: logRecorder})
	c.Shutdown()
	c.Shutdown()

	require.True(t, c.Limiter().TryAcquire())
	time.Sleep(time.Millisecond * 50)
	require.Equal(t, 0, c.Limiter().Available())

	entry, found := logRecorder.FindEntry("rate limiter replenishment stopped")
	require.True(t, found)
	component, found := entry.FindField("component")
	require.True(t, found)
	require.Equal(t, "rate-limiter", string(component.Bytes))
}

func TestNewWithOpts_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{name: "empty url", modify: func(cfg *Config) { cfg.APIURL = "" }},
		{name: "bad scheme", modify: func(cfg *Config) { cfg.APIURL = "ftp://registry.test" }},
		{name: "zero request limit", modify: func(cfg *Config) { cfg.RateLimit.RequestLimit = 0 }},
		{name: "zero window", modify: func(cfg *Config) { cfg.RateLimit.Window = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			c, err := New(cfg)
			require.Error(t, err)
			require.Nil(t, c)
		})
	}
}
