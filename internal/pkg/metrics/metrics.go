package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noticias_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_http_cache_results_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	// Newsletter
	SubscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_subscriptions_total",
			Help: "Subscribe calls by outcome (created, resent, updated, reactivated)",
		},
		[]string{"site", "outcome"},
	)

	ConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_subscription_confirmations_total",
			Help: "Confirmation attempts by status",
		},
		[]string{"status"},
	)

	UnsubscribesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_unsubscribes_total",
			Help: "Total number of unsubscribes",
		},
		[]string{"site"},
	)

	BulletinsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_bulletins_dispatched_total",
			Help: "Bulletin dispatch runs by type and final status",
		},
		[]string{"site", "type", "status"},
	)

	// Mail
	MailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_mails_total",
			Help: "Outbound mails by template and status",
		},
		[]string{"template", "status"},
	)

	// Contact
	ContactMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_contact_messages_total",
			Help: "Contact submissions by resulting status",
		},
		[]string{"site", "status"},
	)

	// Category cache
	CategoryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noticias_category_cache_hits_total",
			Help: "Category cache hits",
		},
	)

	CategoryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noticias_category_cache_misses_total",
			Help: "Category cache misses",
		},
	)

	// Scheduler
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_job_runs_total",
			Help: "Scheduled job executions by job and status",
		},
		[]string{"job", "status"},
	)

	// Events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_events_published_total",
			Help: "Domain events published by topic and status",
		},
		[]string{"driver", "topic", "status"},
	)
)

// Status returns the conventional label for an operation outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
