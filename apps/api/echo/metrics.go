package echoapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kosakata",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	submissionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kosakata",
		Subsystem: "submission",
		Name:      "created_total",
		Help:      "Daily submissions recorded.",
	})

	submissionRequiredEntries = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kosakata",
		Subsystem: "submission",
		Name:      "required_entries",
		Help:      "Required entry count frozen on new submissions, penalties included.",
		Buckets:   prometheus.LinearBuckets(5, 3, 10),
	})

	reviewsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kosakata",
		Subsystem: "submission",
		Name:      "reviews_total",
		Help:      "Grades given by reviewers, by star count.",
	}, []string{"stars"})
)
