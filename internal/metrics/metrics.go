// Package metrics exposes prometheus instrumentation for batch runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts pipeline runs by outcome ("success" or "error").
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline",
		Name:      "runs_total",
		Help:      "Number of batch pipeline runs by outcome.",
	}, []string{"status"})

	// RecordsFetched counts source records fetched per collection.
	RecordsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline",
		Name:      "records_fetched_total",
		Help:      "Number of unprocessed source records fetched.",
	}, []string{"collection"})

	// CredentialsStored counts credentials durably logged.
	CredentialsStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pipeline",
		Name:      "credentials_stored_total",
		Help:      "Number of credentials stored in the credential log.",
	})

	// CredentialsSkipped counts credentials skipped as duplicate hashes.
	CredentialsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pipeline",
		Name:      "credentials_skipped_total",
		Help:      "Number of credentials skipped because their content hash was already logged.",
	})

	// RunDuration observes wall-clock batch run duration.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Duration of batch pipeline runs.",
		Buckets:   prometheus.DefBuckets,
	})
)
