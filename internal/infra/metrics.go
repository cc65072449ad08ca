package infra

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	BetWrites        *prometheus.CounterVec
	OCRExtractions   *prometheus.CounterVec
	RateLimitRetries prometheus.Counter
	CacheLookups     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bettingtips_http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bettingtips_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		BetWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bettingtips_bet_writes_total",
			Help: "Bet writes by operation.",
		}, []string{"op"}),
		OCRExtractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bettingtips_ocr_extractions_total",
			Help: "OCR extractions by mode and the source that produced the result.",
		}, []string{"mode", "source"}),
		RateLimitRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bettingtips_db_rate_limit_retries_total",
			Help: "Database calls retried after a rate-limit error.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bettingtips_stats_cache_lookups_total",
			Help: "Statistics cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.BetWrites,
		m.OCRExtractions,
		m.RateLimitRetries,
		m.CacheLookups,
	)
	return m
}
