/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/crptkit/docsubmit/docclient"
	"github.com/crptkit/docsubmit/httpclient"
	"github.com/crptkit/docsubmit/log"
	"github.com/crptkit/docsubmit/ratelimit"
	"github.com/crptkit/docsubmit/service"
)

// Environment variables used when the corresponding flags are not set.
const (
	EnvVarToken     = EnvVarsPrefix + "_TOKEN"
	EnvVarSignature = EnvVarsPrefix + "_SIGNATURE"
)

const metricsNamespace = "docsubmit"

type submitOptions struct {
	root *rootOptions

	signature       string
	token           string
	concurrency     int
	include         []string
	exclude         []string
	output          string
	apiURL          string
	requestLimit    int
	window          time.Duration
	metricsTextfile string
}

func newSubmitCommand(root *rootOptions) *cobra.Command {
	opts := &submitOptions{root: root}
	cmd := &cobra.Command{
		Use:   "submit [flags] <file-or-dir>...",
		Short: "Submit documents from JSON or YAML files",
		Long: `Submit documents read from files. Directories are walked recursively and
filtered by --include/--exclude patterns matched against file names.

The signature and the auth token may be passed through the ` + EnvVarSignature + ` and ` + EnvVarToken + `
environment variables. The command fails if any document was not accepted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.signature, "signature", "", "base64 document signature (env "+EnvVarSignature+")")
	f.StringVar(&opts.token, "token", "", "API auth token (env "+EnvVarToken+")")
	f.IntVar(&opts.concurrency, "concurrency", 4, "number of documents submitted in parallel")
	f.StringSliceVar(&opts.include, "include", DefaultIncludePatterns, "file name patterns to pick in directories")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "file name patterns to skip in directories")
	f.StringVarP(&opts.output, "output", "o", OutputFormatTable, "output format (table, json)")
	f.StringVar(&opts.apiURL, "api-url", "", "override client.apiUrl")
	f.IntVar(&opts.requestLimit, "request-limit", 0, "override client.rateLimit.requestLimit")
	f.DurationVar(&opts.window, "window", 0, "override client.rateLimit.window")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "",
		"write Prometheus metrics to this file when the batch is done")
	return cmd
}

func (o *submitOptions) credentials() (signature, token string, err error) {
	signature, token = o.signature, o.token
	if signature == "" {
		signature = os.Getenv(EnvVarSignature)
	}
	if token == "" {
		token = os.Getenv(EnvVarToken)
	}
	if signature == "" {
		return "", "", fmt.Errorf("signature is required (--signature or %s)", EnvVarSignature)
	}
	if token == "" {
		return "", "", fmt.Errorf("auth token is required (--token or %s)", EnvVarToken)
	}
	return signature, token, nil
}

func (o *submitOptions) applyOverrides(cmd *cobra.Command, cfg *docclient.Config) error {
	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = o.apiURL
	}
	if cmd.Flags().Changed("request-limit") {
		cfg.RateLimit.RequestLimit = o.requestLimit
	}
	if cmd.Flags().Changed("window") {
		cfg.RateLimit.Window = o.window
	}
	if o.metricsTextfile != "" {
		cfg.HTTP.Metrics.Enabled = true
	}
	return cfg.Validate()
}

type submitMetrics struct {
	registry *prometheus.Registry
	client   *docclient.PrometheusMetricsCollector
	limiter  *ratelimit.PrometheusMetricsCollector
	http     *httpclient.PrometheusMetricsCollector
}

func newSubmitMetrics() *submitMetrics {
	m := &submitMetrics{
		registry: prometheus.NewRegistry(),
		client:   docclient.NewPrometheusMetricsCollector(metricsNamespace),
		limiter:  ratelimit.NewPrometheusMetricsCollector(metricsNamespace, docclient.RequestType),
		http:     httpclient.NewPrometheusMetricsCollector(metricsNamespace),
	}
	m.registry.MustRegister(
		m.client.Submissions, m.client.Durations,
		m.limiter.Available, m.limiter.Admissions, m.limiter.Cancelled, m.limiter.WaitDurations, m.limiter.Replenishments,
		m.http.Durations,
	)
	return m
}

func runSubmit(cmd *cobra.Command, opts *submitOptions, args []string) error {
	if opts.output != OutputFormatTable && opts.output != OutputFormatJSON {
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	signature, token, err := opts.credentials()
	if err != nil {
		return err
	}

	appCfg, err := opts.root.loadConfig()
	if err != nil {
		return err
	}
	if err = opts.applyOverrides(cmd, appCfg.Client); err != nil {
		return err
	}

	logger, closeLogger := log.NewLogger(appCfg.Log)
	defer closeLogger()

	files, err := collectDocumentFiles(args, newFileFilter(opts.include, opts.exclude))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no document files found")
	}
	jobs := make([]documentJob, 0, len(files))
	for _, file := range files {
		doc, loadErr := loadDocument(file)
		if loadErr != nil {
			logger.Warn("failed to load document", log.String("file", file), log.Error(loadErr))
		}
		jobs = append(jobs, documentJob{file: file, doc: doc, loadErr: loadErr})
	}

	clientOpts := docclient.Opts{Logger: logger}
	var metrics *submitMetrics
	if appCfg.Client.HTTP.Metrics.Enabled {
		if opts.metricsTextfile == "" {
			logger.Warn("metrics are enabled but will not be exported, use --metrics-textfile to write them")
		}
		metrics = newSubmitMetrics()
		clientOpts.MetricsCollector = metrics.client
		clientOpts.LimiterMetricsCollector = metrics.limiter
		clientOpts.HTTPClientOpts.Collector = metrics.http
	}
	client, err := docclient.NewWithOpts(appCfg.Client, clientOpts)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	worker := &submitWorker{
		client:      client,
		jobs:        jobs,
		signature:   signature,
		authToken:   token,
		concurrency: opts.concurrency,
		logger:      logger,
	}
	unit := service.NewWorkerUnitWithOpts(worker, service.WorkerUnitOpts{Batch: true, Logger: logger})
	svc := service.New(logger, unit)
	if err = svc.StartContext(cmd.Context()); err != nil {
		return err
	}

	report := newBatchReport(worker.outcomes)
	if err = writeReport(cmd.OutOrStdout(), report, opts.output); err != nil {
		return err
	}
	if metrics != nil && opts.metricsTextfile != "" {
		if err = prometheus.WriteToTextfile(opts.metricsTextfile, metrics.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if report.Accepted < report.Total {
		return fmt.Errorf("%d of %d documents were not accepted", report.Total-report.Accepted, report.Total)
	}
	return nil
}
