package scraper

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry            *prometheus.Registry
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	ItemsScrapedTotal   *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
	SitesTotal          *prometheus.CounterVec
	MismatchesTotal     *prometheus.CounterVec
	LastSuccessUnixTime prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "materials_requests_total",
			Help: "Total page requests by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "materials_request_duration_seconds",
			Help:    "HTTP request latency for listing pages.",
			Buckets: prometheus.DefBuckets,
		},
	)
	itemsScraped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "materials_items_scraped_total",
			Help: "Records extracted per shop and material.",
		},
		[]string{"shop", "material"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "materials_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	sites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "materials_sites_total",
			Help: "Configured sites processed by outcome.",
		},
		[]string{"outcome"},
	)
	mismatches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "materials_extraction_mismatches_total",
			Help: "Pages whose element families differed in length.",
		},
		[]string{"shop"},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "materials_last_success_timestamp_seconds",
			Help: "Unix time of the last run that fetched at least one site.",
		},
	)

	registry.MustRegister(requests, requestDuration, itemsScraped, errorsTotal, sites, mismatches, lastSuccess)

	return &Metrics{
		Registry:            registry,
		RequestsTotal:       requests,
		RequestDuration:     requestDuration,
		ItemsScrapedTotal:   itemsScraped,
		ErrorsTotal:         errorsTotal,
		SitesTotal:          sites,
		MismatchesTotal:     mismatches,
		LastSuccessUnixTime: lastSuccess,
	}
}

// IncRequest increments the requests counter for an outcome.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddItems adds extracted records for a shop and material.
func (m *Metrics) AddItems(shop, material string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsScrapedTotal.WithLabelValues(shop, material).Add(float64(n))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncSite counts a processed site.
func (m *Metrics) IncSite(outcome string) {
	if m == nil {
		return
	}
	m.SitesTotal.WithLabelValues(outcome).Inc()
}

// IncMismatch counts a page with misaligned element families.
func (m *Metrics) IncMismatch(shop string) {
	if m == nil {
		return
	}
	m.MismatchesTotal.WithLabelValues(shop).Inc()
}

// MarkSuccess stamps the last successful run.
func (m *Metrics) MarkSuccess(t time.Time) {
	if m == nil {
		return
	}
	m.LastSuccessUnixTime.Set(float64(t.Unix()))
}

// Push sends the registry to a Prometheus Pushgateway under job.
func (m *Metrics) Push(url, job string) error {
	if m == nil {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.Registry).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
