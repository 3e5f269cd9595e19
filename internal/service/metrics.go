package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_request_transitions_total",
			Help: "Service request lifecycle transitions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	requestsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_requests_created_total",
			Help: "Service requests created",
		},
	)

	reviewMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_review_mutations_total",
			Help: "Committed review creations, updates and deletions",
		},
		[]string{"operation"},
	)

	ratingRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketplace_rating_recompute_duration_seconds",
			Help:    "Time spent recomputing service and provider rating aggregates",
			Buckets: prometheus.DefBuckets,
		},
	)

	lockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketplace_service_lock_wait_seconds",
			Help:    "Time spent waiting for the per-service rating lock",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)

// outcome labels.
const (
	outcomeOK     = "ok"
	outcomeDenied = "denied"
	outcomeError  = "error"
)
