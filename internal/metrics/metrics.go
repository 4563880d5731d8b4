// Package metrics holds the Prometheus collectors of the search service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "marketplace"

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPSeconds       *prometheus.HistogramVec

	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamRetriesTotal  *prometheus.CounterVec
	UpstreamSeconds       *prometheus.HistogramVec

	SearchesTotal *prometheus.CounterVec
	NoticesTotal  *prometheus.CounterVec

	CacheLookupsTotal *prometheus.CounterVec

	ActiveSessions prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Inbound HTTP requests partitioned by route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_seconds",
				Help:      "Latency in seconds of inbound HTTP requests per route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Requests sent to the listings API partitioned by endpoint and status code.",
			},
			[]string{"endpoint", "status"},
		),
		UpstreamRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "retries_total",
				Help:      "Retries after a 429 response per endpoint.",
			},
			[]string{"endpoint"},
		),
		UpstreamSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "request_seconds",
				Help:      "Latency in seconds of a single listings API attempt.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "searches_total",
				Help:      "Searches partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		NoticesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "notices_total",
				Help:      "User facing notices partitioned by kind.",
			},
			[]string{"kind"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cache lookups partitioned by cache name and result.",
			},
			[]string{"cache", "result"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "active",
				Help:      "Number of live search sessions.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPSeconds,
		m.UpstreamRequestsTotal,
		m.UpstreamRetriesTotal,
		m.UpstreamSeconds,
		m.SearchesTotal,
		m.NoticesTotal,
		m.CacheLookupsTotal,
		m.ActiveSessions,
	)
	return m
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPSeconds.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) ObserveUpstream(endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.UpstreamSeconds.WithLabelValues(endpoint).Observe(seconds)
}

func (m *Metrics) UpstreamRetry(endpoint string) {
	if m == nil {
		return
	}
	m.UpstreamRetriesTotal.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) Search(outcome string) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notice(kind string) {
	if m == nil {
		return
	}
	m.NoticesTotal.WithLabelValues(kind).Inc()
}

// CacheLookup records a hit or a miss of the named cache.
func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}
