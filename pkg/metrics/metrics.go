// Package metrics collects counters for a gate run and writes them in the
// Prometheus text format, for the node exporter textfile collector.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vertti/checkgate/pkg/checkrun"
	"github.com/vertti/checkgate/pkg/poll"
)

// SCMAPI represents the type of API being used in SCM calls.
type SCMAPI string

const (
	// SCMAPICheckRuns is used for listing check runs of a reference.
	SCMAPICheckRuns SCMAPI = "CheckRuns"
)

// SCMOperation represents the type of operation being performed on the SCM API.
type SCMOperation string

const (
	// SCMOperationList is used when listing resources, such as check runs.
	SCMOperationList SCMOperation = "list"
)

// RateLimit represents the rate limit information for SCM API calls.
type RateLimit struct {
	// Limit is the maximum number of requests allowed in the current rate limit window.
	Limit int
	// Remaining is the number of requests remaining in the current rate limit window.
	Remaining int
	// ResetRemaining is the duration until the rate limit resets.
	ResetRemaining time.Duration
}

var (
	scmCallLabels  = []string{"repository", "api", "operation", "response_code"}
	pollLabels     = []string{"repository", "verdict"}
	outcomeLabels  = []string{"repository", "outcome"}
	repositoryLabel = []string{"repository"}
)

// Recorder owns a private registry so repeated runs in one process
// (tests, mostly) never collide on registration.
type Recorder struct {
	registry   *prometheus.Registry
	repository string

	scmCallsTotal           *prometheus.CounterVec
	scmCallsDurationSeconds *prometheus.HistogramVec
	rateLimitLimit          *prometheus.GaugeVec
	rateLimitRemaining      *prometheus.GaugeVec
	rateLimitResetSeconds   *prometheus.GaugeVec
	pollsTotal              *prometheus.CounterVec
	waitSeconds             *prometheus.GaugeVec
	outcome                 *prometheus.GaugeVec
}

// NewRecorder creates a Recorder labelling every series with repository ("owner/name").
func NewRecorder(repository string) *Recorder {
	r := &Recorder{
		registry:   prometheus.NewRegistry(),
		repository: repository,

		scmCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkgate_scm_calls_total",
				Help: "A counter of SCM API calls.",
			},
			scmCallLabels,
		),
		scmCallsDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkgate_scm_calls_duration_seconds",
				Help:    "A histogram of the duration of SCM API calls.",
				Buckets: prometheus.DefBuckets,
			},
			scmCallLabels,
		),
		rateLimitLimit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "checkgate_scm_calls_rate_limit_limit",
				Help: "A gauge for the rate limit of SCM API calls.",
			},
			repositoryLabel,
		),
		rateLimitRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "checkgate_scm_calls_rate_limit_remaining",
				Help: "A gauge for the remaining rate limit of SCM API calls.",
			},
			repositoryLabel,
		),
		rateLimitResetSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "checkgate_scm_calls_rate_limit_reset_remaining_seconds",
				Help: "A gauge for the remaining seconds until the SCM API rate limit resets.",
			},
			repositoryLabel,
		),
		pollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkgate_polls_total",
				Help: "A counter of aggregated snapshots by verdict.",
			},
			pollLabels,
		),
		waitSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "checkgate_wait_seconds",
				Help: "Seconds spent sleeping between polls.",
			},
			repositoryLabel,
		),
		outcome: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "checkgate_outcome",
				Help: "Set to 1 for the outcome the gate ended with.",
			},
			outcomeLabels,
		),
	}

	r.registry.MustRegister(
		r.scmCallsTotal,
		r.scmCallsDurationSeconds,
		r.rateLimitLimit,
		r.rateLimitRemaining,
		r.rateLimitResetSeconds,
		r.pollsTotal,
		r.waitSeconds,
		r.outcome,
	)
	return r
}

// RecordSCMCall records both the increment and observation for SCM API calls, and optionally observes rate limit metrics.
func (r *Recorder) RecordSCMCall(api SCMAPI, operation SCMOperation, responseCode int, duration time.Duration, rateLimit *RateLimit) {
	labels := prometheus.Labels{
		"repository":    r.repository,
		"api":           string(api),
		"operation":     string(operation),
		"response_code": strconv.Itoa(responseCode),
	}
	r.scmCallsTotal.With(labels).Inc()
	r.scmCallsDurationSeconds.With(labels).Observe(duration.Seconds())

	if rateLimit != nil {
		repositoryLabels := prometheus.Labels{"repository": r.repository}
		r.rateLimitLimit.With(repositoryLabels).Set(float64(rateLimit.Limit))
		r.rateLimitRemaining.With(repositoryLabels).Set(float64(rateLimit.Remaining))
		r.rateLimitResetSeconds.With(repositoryLabels).Set(rateLimit.ResetRemaining.Seconds())
	}
}

// ObservePoll implements poll.Observer.
func (r *Recorder) ObservePoll(verdict checkrun.Verdict) {
	r.pollsTotal.With(prometheus.Labels{"repository": r.repository, "verdict": verdict.String()}).Inc()
}

// ObserveResult implements poll.Observer.
func (r *Recorder) ObserveResult(res poll.Result) {
	r.waitSeconds.With(prometheus.Labels{"repository": r.repository}).Set(res.State.Elapsed.Seconds())
	r.outcome.With(prometheus.Labels{"repository": r.repository, "outcome": res.Outcome.String()}).Set(1)
}

// Gatherer exposes the registry, e.g. for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteToTextfile writes all metrics to path atomically.
func (r *Recorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
