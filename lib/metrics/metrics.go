package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP request instrumentation, labeled by route pattern rather than raw path
// so cardinality stays bounded.
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "savepoint",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests by method, route, and status code.",
	}, []string{"method", "route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "savepoint",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Domain counters.
var (
	HabitCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "savepoint",
		Name:      "habit_completions_total",
		Help:      "Count of habit completions recorded.",
	})

	TaskCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "savepoint",
		Name:      "task_completions_total",
		Help:      "Count of task completions recorded.",
	})

	PointsAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "savepoint",
		Name:      "points_awarded_total",
		Help:      "Sum of points awarded across habits, tasks, and achievements.",
	})

	BadgesAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "savepoint",
		Name:      "badges_awarded_total",
		Help:      "Count of achievement badges awarded.",
	})

	RemindersEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "savepoint",
		Name:      "reminders_enqueued_total",
		Help:      "Count of reminder messages published to the queue.",
	})
)
