package apiclient

import (
	"context"
	"errors"
	"marketplace/server/internal/metrics"
	"marketplace/server/internal/requestid"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{"properties":[{"id":"p1","title":"Flat in Vake","dealType":"sale","propertyType":"apartment","price":85000,"currency":"USD","city":"Tbilisi"}],"pagination":{"page":1,"limit":16,"total":1,"pages":1}}`

func newTestClient(t *testing.T, srv *httptest.Server) (*Client, *[]time.Duration, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	c := New(Options{BaseURL: srv.URL + "/", BackoffUnit: time.Second}, logger, m)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept, m
}

func TestSearchProperties(t *testing.T) {
	var gotQuery url.Values
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties", r.URL.Path)
		gotQuery = r.URL.Query()
		gotID = r.Header.Get(requestid.Header)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c, slept, _ := newTestClient(t, srv)
	ctx := requestid.WithID(context.Background(), "req-1")

	res, err := c.SearchProperties(ctx, url.Values{"dealType": {"sale"}, "limit": {"16"}})
	require.NoError(t, err)

	assert.Equal(t, "sale", gotQuery.Get("dealType"))
	assert.Equal(t, "16", gotQuery.Get("limit"))
	assert.Equal(t, "req-1", gotID)
	require.Len(t, res.Properties, 1)
	assert.Equal(t, "Flat in Vake", res.Properties[0].Title)
	assert.Equal(t, 1, res.Pagination.Total)
	assert.Empty(t, *slept)
}

func TestSearchProperties_RetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c, slept, m := newTestClient(t, srv)

	res, err := c.SearchProperties(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, res.Properties, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRetriesTotal.WithLabelValues("properties")))
}

func TestSearchProperties_RetryAfterHeader(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c, slept, _ := newTestClient(t, srv)

	_, err := c.SearchProperties(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second}, *slept)
}

func TestSearchProperties_RetryAfterCapped(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "3600")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c, slept, _ := newTestClient(t, srv)
	c.maxDelay = 2 * time.Second

	_, err := c.SearchProperties(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestSearchProperties_RateLimitExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, slept, _ := newTestClient(t, srv)

	_, err := c.SearchProperties(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, *slept, 2)
}

func TestSearchProperties_ServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv)

	_, err := c.SearchProperties(context.Background(), nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSearchProperties_CancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv)
	c.sleep = sleepContext
	c.backoffUnit = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.SearchProperties(ctx, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestListCitiesAndAreas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/locations/cities":
			_, _ = w.Write([]byte(`[{"id":1,"name":"Tbilisi"},{"id":2,"name":"Batumi"}]`))
		case "/locations/cities/1/areas":
			_, _ = w.Write([]byte(`[{"id":10,"name":"Vake"},{"id":11,"cityId":1,"name":"Saburtalo"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv)

	cities, err := c.ListCities(context.Background())
	require.NoError(t, err)
	assert.Len(t, cities, 2)
	assert.Equal(t, "Batumi", cities[1].Name)

	areas, err := c.ListAreas(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, 1, areas[0].CityID)
	assert.Equal(t, "Saburtalo", areas[1].Name)

	_, err = c.ListAreas(context.Background(), 99)
	var statusErr *StatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestRetryDelay(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		retryAfter string
		attempt    int
		want       time.Duration
	}{
		{name: "first backoff", attempt: 1, want: time.Second},
		{name: "second backoff", attempt: 2, want: 2 * time.Second},
		{name: "third backoff", attempt: 3, want: 4 * time.Second},
		{name: "seconds header", retryAfter: "3", attempt: 2, want: 3 * time.Second},
		{name: "http date header", retryAfter: "Wed, 01 May 2024 12:00:05 GMT", attempt: 1, want: 5 * time.Second},
		{name: "date in the past", retryAfter: "Wed, 01 May 2024 11:00:00 GMT", attempt: 1, want: 0},
		{name: "garbage header", retryAfter: "soon", attempt: 2, want: 2 * time.Second},
		{name: "negative header", retryAfter: "-1", attempt: 1, want: time.Second},
		{name: "header above cap", retryAfter: "3600", attempt: 1, want: 30 * time.Second},
		{name: "header overflowing duration", retryAfter: "99999999999999999", attempt: 1, want: 30 * time.Second},
		{name: "date far ahead", retryAfter: "Thu, 02 May 2024 12:00:00 GMT", attempt: 1, want: 30 * time.Second},
		{name: "backoff above cap", attempt: 10, want: 30 * time.Second},
		{name: "backoff at huge attempt", attempt: 200, want: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.retryAfter != "" {
				h.Set("Retry-After", tt.retryAfter)
			}
			assert.Equal(t, tt.want, retryDelay(h, tt.attempt, time.Second, 30*time.Second, now))
		})
	}
}
