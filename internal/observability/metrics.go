package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine's operational counters to Prometheus.
type Metrics struct {
	DeliveriesTotal   *prometheus.CounterVec
	DeliveryRetries   prometheus.Counter
	AlertsRaisedTotal *prometheus.CounterVec
	BillingRunsTotal  *prometheus.CounterVec
	InvoicesUpserted  prometheus.Counter
	JobDuration       *prometheus.HistogramVec
	JobsTotal         *prometheus.CounterVec
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPErrorsTotal   *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// NewMetrics builds and registers the metric set on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notice_deliveries_total",
			Help: "Communication send outcomes by channel and status.",
		}, []string{"channel", "status"}),
		DeliveryRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notice_delivery_retries_total",
			Help: "Retries scheduled by the delivery pipeline.",
		}),
		AlertsRaisedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notice_alerts_raised_total",
			Help: "Alerts raised by type and severity.",
		}, []string{"type", "severity"}),
		BillingRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_runs_total",
			Help: "Billing run outcomes (completed, skipped_lock_held, failed).",
		}, []string{"result"}),
		InvoicesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_invoices_upserted_total",
			Help: "Invoices generated or refreshed by billing runs.",
		}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_job_duration_seconds",
			Help:    "Queue job execution time by job name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_jobs_total",
			Help: "Queue job outcomes by job name and result.",
		}, []string{"job", "result"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		HTTPErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by path, method and error code.",
		}, []string{"path", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by path and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}

	reg.MustRegister(
		m.DeliveriesTotal,
		m.DeliveryRetries,
		m.AlertsRaisedTotal,
		m.BillingRunsTotal,
		m.InvoicesUpserted,
		m.JobDuration,
		m.JobsTotal,
		m.HTTPRequestsTotal,
		m.HTTPErrorsTotal,
		m.HTTPDuration,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(path, method, code).Inc()
}
