package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveUpstream("properties", "429", 0.01)
	m.ObserveUpstream("properties", "200", 0.02)
	m.UpstreamRetry("properties")
	m.CacheLookup("cities", true)
	m.CacheLookup("cities", false)
	m.CacheLookup("cities", false)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("properties", "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRetriesTotal.WithLabelValues("properties")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("cities", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/properties", "200", 0.1)
		m.Search("success")
		m.Notice("rate_limited")
		m.SessionOpened()
	})
}
