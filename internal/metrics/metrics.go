package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "barbershop"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	bookingSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submissions_total",
			Help:      "Booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	bookingEffects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_effects_total",
			Help:      "Best-effort booking side effects by effect and result.",
		},
		[]string{"effect", "result"},
	)

	adminStatusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_status_updates_total",
			Help:      "Admin booking status updates by target status.",
		},
		[]string{"status"},
	)

	sheetsSyncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_sync_tasks_total",
			Help:      "Spreadsheet sync tasks by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingSubmissions,
			bookingEffects,
			adminStatusUpdates,
			sheetsSyncTasks,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func ObserveHTTP(endpoint string, d time.Duration) {
	httpDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func IncSubmission(outcome string) {
	bookingSubmissions.WithLabelValues(outcome).Inc()
}

func IncEffect(effect string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	bookingEffects.WithLabelValues(effect, result).Inc()
}

func IncStatusUpdate(status string) {
	adminStatusUpdates.WithLabelValues(status).Inc()
}

func IncSheetsSync(result string) {
	sheetsSyncTasks.WithLabelValues(result).Inc()
}
