/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/crptkit/docsubmit/docclient"
	"github.com/crptkit/docsubmit/log"
	"github.com/crptkit/docsubmit/ratelimit"
)

// outcomeInvalid marks files that could not be read or parsed. They are never submitted.
const outcomeInvalid = "invalid"

type documentJob struct {
	file    string
	doc     *docclient.Document
	loadErr error
}

type submissionOutcome struct {
	File       string `json:"file"`
	DocID      string `json:"doc_id,omitempty"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"status_code,omitempty"`
	Response   string `json:"response,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (o submissionOutcome) accepted() bool {
	return o.Outcome == docclient.OutcomeAccepted
}

// documentSubmitter is the part of docclient.Client used by submitWorker.
type documentSubmitter interface {
	Submit(ctx context.Context, doc *docclient.Document, signature, authToken string) (*docclient.Result, error)
}

// submitWorker submits a batch of documents with a fixed number of goroutines.
// It implements service.Worker, so the batch is interrupted by OS signals when run under service.Service.
type submitWorker struct {
	client      documentSubmitter
	jobs        []documentJob
	signature   string
	authToken   string
	concurrency int
	logger      log.FieldLogger

	outcomes []submissionOutcome
}

func (w *submitWorker) Run(ctx context.Context) error {
	w.outcomes = make([]submissionOutcome, len(w.jobs))

	concurrency := w.concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	jobIndexes := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobIndexes {
				w.outcomes[idx] = w.submit(ctx, w.jobs[idx])
			}
		}()
	}
	for i := range w.jobs {
		jobIndexes <- i
	}
	close(jobIndexes)
	wg.Wait()

	w.logger.Info("document batch processed", log.Int("documents", len(w.jobs)))
	return nil
}

func (w *submitWorker) submit(ctx context.Context, job documentJob) submissionOutcome {
	outcome := submissionOutcome{File: job.file}
	if job.loadErr != nil {
		outcome.Outcome = outcomeInvalid
		outcome.Error = job.loadErr.Error()
		return outcome
	}
	outcome.DocID = job.doc.DocID

	startTime := time.Now()
	result, err := w.client.Submit(ctx, job.doc, w.signature, w.authToken)
	outcome.DurationMs = time.Since(startTime).Milliseconds()
	if err != nil {
		outcome.Outcome = classifySubmitError(err)
		outcome.Error = err.Error()
		return outcome
	}

	outcome.StatusCode = result.StatusCode
	outcome.Response = string(result.Body)
	if result.Succeeded() {
		outcome.Outcome = docclient.OutcomeAccepted
	} else {
		outcome.Outcome = docclient.OutcomeRejected
	}
	return outcome
}

func classifySubmitError(err error) string {
	var acquireErr *ratelimit.AcquireError
	var transportErr *docclient.TransportError
	var encodeErr *docclient.EncodeError
	switch {
	case errors.As(err, &acquireErr):
		return docclient.OutcomeCancelled
	case errors.As(err, &transportErr):
		return docclient.OutcomeTransportError
	case errors.As(err, &encodeErr):
		return docclient.OutcomeEncodeError
	}
	return outcomeInvalid
}
