package obs

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}
	} else {
		sort.Float64s(buckets)
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	reg.MustRegister(m.ReqTotal, m.ReqDur, m.InFlight)
	return m
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var (
	domainOnce sync.Once

	// QuotesTotal counts forward and inverse quote computations by outcome.
	QuotesTotal *prometheus.CounterVec
	// SupplierNormalizeTotal counts supplier price heuristic decisions.
	SupplierNormalizeTotal *prometheus.CounterVec
	// OrdersRecordedTotal counts order record attempts by outcome.
	OrdersRecordedTotal *prometheus.CounterVec
	// LedgerMismatchTotal counts ledgers that failed reconciliation. This
	// should stay at zero; any increment is a bug to chase.
	LedgerMismatchTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers the engine's domain
// collectors. Call once at startup before serving traffic.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of quote computations by operation and result.",
		}, []string{"op", "result"})
		SupplierNormalizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supplier_price_normalize_total",
			Help:      "Count of supplier price normalizations by heuristic applied.",
		}, []string{"heuristic"})
		OrdersRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_recorded_total",
			Help:      "Count of order record attempts by result.",
		}, []string{"result"})
		LedgerMismatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_mismatch_total",
			Help:      "Count of payout ledgers that failed reconciliation.",
		})
		reg.MustRegister(QuotesTotal, SupplierNormalizeTotal, OrdersRecordedTotal, LedgerMismatchTotal)
	})
}
