// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "repayment_engine"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	schedulesGenerated *prometheus.CounterVec
	paymentsRecorded   *prometheus.CounterVec
	paymentAmount      prometheus.Counter
	overdueFlips       prometheus.Counter
	lateFeesAccrued    prometheus.Counter
	lockFailures       prometheus.Counter
	calcCache          *prometheus.CounterVec
}

// New registers every collector on a private registry, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		schedulesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "schedules_generated_total",
			Help: "Repayment schedules generated by method.",
		}, []string{"method"}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "payments_recorded_total",
			Help: "Payments applied to schedule periods by settlement kind.",
		}, []string{"settlement"}),
		paymentAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "payment_amount_total",
			Help: "Sum of applied payment amounts.",
		}),
		overdueFlips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "periods_marked_overdue_total",
			Help: "Schedule periods flipped to overdue.",
		}),
		lateFeesAccrued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "late_fees_accrued_total",
			Help: "Late fees added by the arrears sweep.",
		}),
		lockFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "loan_lock_failures_total",
			Help: "Schedule mutations rejected because the loan was locked.",
		}),
		calcCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "calculation_cache_total",
			Help: "Calculator cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.schedulesGenerated, m.paymentsRecorded, m.paymentAmount,
		m.overdueFlips, m.lateFeesAccrued, m.lockFailures, m.calcCache,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) ScheduleGenerated(method string) {
	if m == nil {
		return
	}
	m.schedulesGenerated.WithLabelValues(method).Inc()
}

func (m *Metrics) PaymentRecorded(settlement string, amount float64) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(settlement).Inc()
	m.paymentAmount.Add(amount)
}

func (m *Metrics) PeriodsOverdue(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueFlips.Add(float64(n))
}

func (m *Metrics) LateFeeAccrued(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.lateFeesAccrued.Add(amount)
}

func (m *Metrics) LockFailed() {
	if m == nil {
		return
	}
	m.lockFailures.Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.calcCache.WithLabelValues(result).Inc()
}
