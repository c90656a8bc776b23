package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mint outcomes
const (
	ResultSuccess    = "success"
	ResultValidation = "validation"
	ResultSigner     = "signer"
	ResultUpload     = "upload"
	ResultMint       = "mint"
	ResultError      = "error"
)

// Ownership check outcomes
const (
	OwnershipOwned    = "owned"
	OwnershipNotOwned = "not_owned"
	OwnershipError    = "error"
)

// Metrics holds Prometheus metrics for the marketplace workflows.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	mintTotal         *prometheus.CounterVec
	mintDuration      prometheus.Histogram
	uploadTotal       *prometheus.CounterVec
	pinFailures       prometheus.Counter
	ownershipChecks   *prometheus.CounterVec
	ownershipScanTime prometheus.Histogram
	totalSupply       prometheus.Gauge
	watchersConnected prometheus.Gauge
}

// New registers all marketplace metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.mintTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_mint_total",
			Help: "mint workflow runs by outcome",
		},
		[]string{"result"},
	)
	m.mintDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketplace_mint_duration_seconds",
			Help:    "wall time of a mint workflow run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
	m.uploadTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_storage_upload_total",
			Help: "content storage uploads by kind and outcome",
		},
		[]string{"kind", "result"},
	)
	m.pinFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_storage_pin_failures_total",
			Help: "pin requests that failed after retries",
		},
	)
	m.ownershipChecks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_ownership_checks_total",
			Help: "per-token ownership checks by outcome",
		},
		[]string{"result"},
	)
	m.ownershipScanTime = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketplace_ownership_scan_duration_seconds",
			Help:    "wall time of a full ownership scan",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
	m.totalSupply = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_total_supply",
			Help: "last observed token supply",
		},
	)
	m.watchersConnected = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_ownership_watchers",
			Help: "ownership watchers currently running",
		},
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics in g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveMint(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mintTotal.WithLabelValues(result).Inc()
	m.mintDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveUpload(kind string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.uploadTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) IncPinFailure() {
	if m == nil {
		return
	}
	m.pinFailures.Inc()
}

func (m *Metrics) ObserveOwnershipCheck(result string) {
	if m == nil {
		return
	}
	m.ownershipChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveOwnershipScan(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ownershipScanTime.Observe(elapsed.Seconds())
}

func (m *Metrics) SetTotalSupply(supply uint64) {
	if m == nil {
		return
	}
	m.totalSupply.Set(float64(supply))
}

func (m *Metrics) WatcherStarted() {
	if m == nil {
		return
	}
	m.watchersConnected.Inc()
}

func (m *Metrics) WatcherStopped() {
	if m == nil {
		return
	}
	m.watchersConnected.Dec()
}
