// Package apiclient talks to the marketplace listings API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"marketplace/server/internal/metrics"
	"marketplace/server/internal/models"
	"marketplace/server/internal/requestid"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRateLimited is returned once every attempt of a request got a 429.
var ErrRateLimited = errors.New("listings API rate limit exceeded")

// StatusError is a non-2xx answer other than an exhausted 429.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("listings API %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BackoffUnit time.Duration
	UserAgent   string

	// Upper bound of any single wait between attempts
	MaxRetryAfter time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	logger      *logrus.Logger
	metrics     *metrics.Metrics
	maxAttempts int
	backoffUnit time.Duration
	maxDelay    time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options, logger *logrus.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = time.Second
	}
	if opts.MaxRetryAfter <= 0 {
		opts.MaxRetryAfter = 30 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		userAgent:   opts.UserAgent,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		logger:      logger,
		metrics:     m,
		maxAttempts: opts.MaxAttempts,
		backoffUnit: opts.BackoffUnit,
		maxDelay:    opts.MaxRetryAfter,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// SearchProperties runs GET /properties with params as the query string.
func (c *Client) SearchProperties(ctx context.Context, params url.Values) (*models.SearchResult, error) {
	var result models.SearchResult
	if err := c.getJSON(ctx, "properties", "/properties", params, &result); err != nil {
		return nil, err
	}
	if result.Properties == nil {
		result.Properties = []models.Property{}
	}
	return &result, nil
}

// ListCities returns every city known to the API.
func (c *Client) ListCities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	if err := c.getJSON(ctx, "cities", "/locations/cities", nil, &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

// ListAreas returns the areas of one city.
func (c *Client) ListAreas(ctx context.Context, cityID int) ([]models.Area, error) {
	var areas []models.Area
	path := "/locations/cities/" + strconv.Itoa(cityID) + "/areas"
	if err := c.getJSON(ctx, "areas", path, nil, &areas); err != nil {
		return nil, err
	}
	for i := range areas {
		if areas[i].CityID == 0 {
			areas[i].CityID = cityID
		}
	}
	return areas, nil
}

// getJSON performs a GET, retrying on 429, and decodes a 200 body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	log := requestid.Entry(ctx, c.logger).WithFields(logrus.Fields{
		"component": "apiclient",
		"endpoint":  endpoint,
	})

	for attempt := 1; ; attempt++ {
		resp, err := c.do(ctx, endpoint, target)
		if err != nil {
			log.WithError(err).Error("Listings API request failed")
			return fmt.Errorf("%s request failed: %w", endpoint, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryDelay(resp.Header, attempt, c.backoffUnit, c.maxDelay, c.now())
			drain(resp)

			if attempt >= c.maxAttempts {
				log.WithField("attempts", attempt).Warn("Listings API rate limit exhausted retries")
				return fmt.Errorf("%s after %d attempts: %w", endpoint, attempt, ErrRateLimited)
			}

			log.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Warn("Listings API rate limited, backing off")
			c.metrics.UpstreamRetry(endpoint)

			if err := c.sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s backoff interrupted: %w", endpoint, err)
			}
			continue
		}

		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			err := &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			log.WithError(err).WithField("status_code", resp.StatusCode).Error("Received non-OK response from listings API")
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.WithError(err).Error("Failed to decode listings API response")
			return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
		log.WithField("attempts", attempt).Debug("Listings API request succeeded")
		return nil
	}
}

func (c *Client) do(ctx context.Context, endpoint, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	c.metrics.ObserveUpstream(endpoint, status, time.Since(start).Seconds())
	return resp, err
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
