// Package metrics holds the Prometheus collectors for code runs and jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "codetube"

// Run outcomes.
const (
	OutcomeAccepted      = "accepted"
	OutcomeProgramFailed = "program_failed"
	OutcomeNotConfigured = "not_configured"
	OutcomeTimeout       = "timeout"
	OutcomeCancelled     = "cancelled"
	OutcomeError         = "error"
)

var (
	// 100ms -> ~100s
	runBuckets = prometheus.ExponentialBuckets(0.1, 2, 11)

	runCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "code",
		Name:      "runs_total",
		Help:      "Number of code runs by outcome",
	}, []string{"outcome"})

	runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "code",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a code run including submit and polling",
		Buckets:   runBuckets,
	}, []string{"mode"})

	jobCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Number of processed jobs by resulting status",
	}, []string{"type", "status"})
)

// Register adds the collectors to r.
func Register(r prometheus.Registerer) {
	r.MustRegister(runCount, runDuration, jobCount)
}

// ObserveRun records one code run. mode is "sync" or "job".
func ObserveRun(mode, outcome string, d time.Duration) {
	runCount.WithLabelValues(outcome).Inc()
	runDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveJob records a job reaching status.
func ObserveJob(jobType, status string) {
	jobCount.WithLabelValues(jobType, status).Inc()
}
