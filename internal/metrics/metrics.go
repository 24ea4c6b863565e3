package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	SubmissionsTotal        prometheus.Counter
	DuplicateSubmissions    prometheus.Counter
	ClassificationSuccesses prometheus.Counter
	ClassificationFailures  prometheus.Counter
	FlaggedContent          prometheus.Counter
	NotificationSuccesses   prometheus.Counter
	NotificationFailures    prometheus.Counter
	ClassificationTime      prometheus.Histogram
	QueueDepth              prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates new Prometheus metrics on the given registry.
// Tests pass a fresh registry so repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubmissionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "content_moderation_submissions_total",
			Help: "Total number of moderation submissions accepted",
		}),
		DuplicateSubmissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "content_moderation_duplicate_submissions_total",
			Help: "Total number of submissions deduplicated by content fingerprint",
		}),
		ClassificationSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "content_moderation_classification_successes",
			Help: "Total number of requests classified successfully",
		}),
		ClassificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "content_moderation_classification_failures",
			Help: "Total number of requests that terminally failed classification",
		}),
		FlaggedContent: factory.NewCounter(prometheus.CounterOpts{
			Name: "content_moderation_flagged_total",
			Help: "Total number of requests classified as anything other than safe",
		}),
		NotificationSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "content_moderation_notification_successes",
			Help: "Total number of successful alert deliveries",
		}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "content_moderation_notification_failures",
			Help: "Total number of failed alert deliveries",
		}),
		ClassificationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "content_moderation_classification_duration_seconds",
			Help:    "Time spent on classifier calls",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "content_moderation_queue_depth",
			Help: "Number of background tasks currently queued or running",
		}),
	}
}
