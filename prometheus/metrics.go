package prometheus

import (
	"time"

	"marketplace-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   prometheus.CounterVec

	// Catalog import metrics
	ImportsCounter   prometheus.CounterVec
	ImportDuration   prometheus.Histogram
	ImportedListings prometheus.Counter

	// Basket metrics
	BasketOperationsCounter prometheus.CounterVec

	// Order metrics
	OrderStatusCounter prometheus.CounterVec

	// Notification metrics
	NotificationsCounter prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Throttling metrics
	ThrottledCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(cfg *config.Config) {
	// Use metric prefix from configuration
	prefix := cfg.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthErrorsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"reason"},
	)

	ImportsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_catalog_imports_total",
			Help: "Total number of catalog imports",
		},
		[]string{"result"},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_catalog_import_duration_seconds",
			Help:    "Duration of catalog imports in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ImportedListings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_catalog_imported_listings_total",
			Help: "Total number of listings written by imports",
		},
	)

	BasketOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_basket_operations_total",
			Help: "Total number of basket operations",
		},
		[]string{"operation"},
	)

	OrderStatusCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_order_status_transitions_total",
			Help: "Total number of order status transitions",
		},
		[]string{"status"},
	)

	NotificationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_notifications_total",
			Help: "Total number of notification deliveries by result",
		},
		[]string{"kind", "result"},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	ThrottledCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_throttled_requests_total",
			Help: "Total number of throttled requests",
		},
		[]string{"scope"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAuthError increments the counter for a failed authentication
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordBasketOperation increments the counter for basket operations
func RecordBasketOperation(operation string) {
	BasketOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordImport increments the counter for catalog imports
func RecordImport(result string) {
	ImportsCounter.WithLabelValues(result).Inc()
}

// RecordStatusTransition increments the counter for order status transitions
func RecordStatusTransition(status string) {
	OrderStatusCounter.WithLabelValues(status).Inc()
}

// RecordNotification increments the counter for notification deliveries
func RecordNotification(kind, result string) {
	NotificationsCounter.WithLabelValues(kind, result).Inc()
}
