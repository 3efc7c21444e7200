package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Email delivery metrics
	EmailsSent       prometheus.Counter
	EmailsFailed     prometheus.Counter
	ProviderAttempts *prometheus.CounterVec
	DeliveryLatency  *prometheus.HistogramVec
	QueueDepth       prometheus.Gauge
	QueueRunDuration prometheus.Histogram
	JobRetries       prometheus.Counter

	// Reminder metrics
	RemindersSent   prometheus.Counter
	RemindersFailed prometheus.Counter
	SweepDuration   prometheus.Histogram
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		EmailsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of emails delivered successfully",
		}),
		EmailsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of email jobs that exhausted all attempts",
		}),
		ProviderAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Delivery attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		DeliveryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent on a single provider attempt",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of pending email jobs at the start of the last run",
		}),
		QueueRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_run_duration_seconds",
			Help:      "Time spent draining one queue batch",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}),
		JobRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_retries_total",
			Help:      "Number of email jobs returned to the queue for another attempt",
		}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of donation reminders delivered",
		}),
		RemindersFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_failed_total",
			Help:      "Total number of donation reminders that failed to deliver",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_sweep_duration_seconds",
			Help:      "Time spent on one reminder sweep",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}),
	}
}
