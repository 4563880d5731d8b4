// Package search drives the request lifecycle of a property search view.
package search

import (
	"context"
	"errors"
	"fmt"
	"marketplace/server/internal/apiclient"
	"marketplace/server/internal/apiparams"
	"marketplace/server/internal/catalog"
	"marketplace/server/internal/metrics"
	"marketplace/server/internal/models"
	"marketplace/server/internal/notify"
	"marketplace/server/internal/requestid"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PageSize is the number of listings per result page.
const PageSize = 16

var (
	ErrInvalidFilter = errors.New("invalid filter")
	ErrSuperseded    = errors.New("search superseded by a newer one")
)

// Status is the lifecycle state of a search view.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Backend runs property searches.
type Backend interface {
	SearchProperties(ctx context.Context, params url.Values) (*models.SearchResult, error)
}

// AreaSource resolves the areas of a city by name.
type AreaSource interface {
	AreasForCity(ctx context.Context, city string) ([]models.Area, error)
}

// Snapshot is a copy of the view state.
type Snapshot struct {
	Status      Status            `json:"status"`
	IsSearching bool              `json:"isSearching"`
	Query       Query             `json:"-"`
	URL         string            `json:"url"`
	Properties  []models.Property `json:"properties"`
	Pagination  models.Pagination `json:"pagination"`
	Showing     string            `json:"showing,omitempty"`
	ScrollToTop bool              `json:"scrollToTop"`
	Error       string            `json:"error,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	if s.Properties != nil {
		props := make([]models.Property, len(s.Properties))
		copy(props, s.Properties)
		s.Properties = props
	}
	return s
}

// Orchestrator owns one search view. Only the newest search may change the
// view: starting a search cancels the one in flight and a response belonging
// to an older search is discarded.
type Orchestrator struct {
	sessionID string
	backend   Backend
	areas     AreaSource
	notifier  notify.Notifier
	logger    *logrus.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	snap     Snapshot
	hasQuery bool
}

// New creates an idle orchestrator. areas may be nil, which skips the
// city/area check.
func New(sessionID string, backend Backend, areas AreaSource, notifier notify.Notifier, logger *logrus.Logger, m *metrics.Metrics) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	if notifier == nil {
		notifier = notify.Multi()
	}
	return &Orchestrator{
		sessionID: sessionID,
		backend:   backend,
		areas:     areas,
		notifier:  notifier,
		logger:    logger,
		metrics:   m,
		snap: Snapshot{
			Status:     StatusIdle,
			Properties: []models.Property{},
			URL:        Query{}.URL(),
		},
	}
}

// Snapshot returns a copy of the current view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap.clone()
}

// Search shows the results of q. A query identical to the one already shown
// successfully is answered from the current view.
func (o *Orchestrator) Search(ctx context.Context, q Query) (Snapshot, error) {
	return o.run(ctx, q, false)
}

// Refresh fetches q even when it is already shown.
func (o *Orchestrator) Refresh(ctx context.Context, q Query) (Snapshot, error) {
	return o.run(ctx, q, true)
}

// Cancel aborts the search in flight, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) run(ctx context.Context, q Query, force bool) (Snapshot, error) {
	q = q.Normalized()
	log := requestid.Entry(ctx, o.logger).WithFields(logrus.Fields{
		"component":  "search",
		"session_id": o.sessionID,
		"query":      q.Key(),
		"filtered":   !q.State.IsDefault(),
	})

	if err := o.validate(ctx, q, log); err != nil {
		o.metrics.Search("invalid")
		log.WithError(err).Info("Rejected invalid filter")
		return o.Snapshot(), err
	}

	o.mu.Lock()
	if !force && o.hasQuery && o.snap.Status == StatusSuccess && o.snap.Query.Key() == q.Key() {
		o.snap.ScrollToTop = false
		snap := o.snap.clone()
		o.mu.Unlock()
		o.metrics.Search("cached")
		return snap, nil
	}

	if o.cancel != nil {
		o.cancel()
	}
	o.seq++
	seq := o.seq
	searchCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	prev := o.snap.clone()
	prevHasQuery := o.hasQuery
	o.snap.ScrollToTop = o.hasQuery && o.snap.Query.Page != q.Page
	o.snap.Status = StatusLoading
	o.snap.IsSearching = true
	o.snap.Query = q
	o.snap.URL = q.URL()
	o.hasQuery = true
	o.mu.Unlock()

	params := apiparams.ToAPIParams(q.State, q.Sort, q.Page).Values()
	params.Set("limit", strconv.Itoa(PageSize))

	start := time.Now()
	res, err := o.backend.SearchProperties(searchCtx, params)
	cancel()

	o.mu.Lock()
	defer o.mu.Unlock()

	if seq != o.seq {
		o.metrics.Search("superseded")
		log.Debug("Discarded response of a superseded search")
		return o.snap.clone(), ErrSuperseded
	}
	o.cancel = nil

	if err != nil && ctx.Err() != nil {
		// Caller gone: restore the previous view.
		o.snap = prev
		o.hasQuery = prevHasQuery
		o.metrics.Search("cancelled")
		return o.snap.clone(), ctx.Err()
	}

	o.snap.IsSearching = false
	if err != nil {
		o.snap.Status = StatusError
		o.snap.Error = userMessage(err)
		o.metrics.Search("error")
		log.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds()).Error("Search failed")
		o.notifier.Notify(notify.Notice{
			Kind:      noticeKind(err),
			Message:   o.snap.Error,
			SessionID: o.sessionID,
			RequestID: requestid.FromContext(ctx),
			At:        time.Now(),
		})
		return o.snap.clone(), err
	}

	o.snap.Status = StatusSuccess
	o.snap.Error = ""
	o.snap.Properties = res.Properties
	if o.snap.Properties == nil {
		o.snap.Properties = []models.Property{}
	}
	o.snap.Pagination = res.Pagination
	o.snap.Showing = showing(res.Pagination, q.Page, len(o.snap.Properties))
	o.metrics.Search("success")
	log.WithFields(logrus.Fields{
		"results":     len(o.snap.Properties),
		"total":       res.Pagination.Total,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Search succeeded")
	return o.snap.clone(), nil
}

func (o *Orchestrator) validate(ctx context.Context, q Query, log *logrus.Entry) error {
	if err := q.State.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	if q.State.AreaID == nil || o.areas == nil {
		return nil
	}
	if q.State.City == "" {
		return fmt.Errorf("%w: area %d selected without a city", ErrInvalidFilter, *q.State.AreaID)
	}

	areas, err := o.areas.AreasForCity(ctx, q.State.City)
	if errors.Is(err, catalog.ErrUnknownCity) {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	if err != nil {
		log.WithError(err).Warn("Skipping area check, location catalog unavailable")
		return nil
	}
	if err := q.State.ValidateArea(areas); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return nil
}

// showing renders "Showing X–Y of Z" for the page.
func showing(p models.Pagination, page, count int) string {
	if p.Total == 0 || count == 0 {
		return fmt.Sprintf("Showing 0 of %d", p.Total)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = PageSize
	}
	if p.Page > 0 {
		page = p.Page
	}
	from := (page-1)*limit + 1
	to := from + count - 1
	if to > p.Total {
		to = p.Total
	}
	return fmt.Sprintf("Showing %d–%d of %d", from, to, p.Total)
}

func noticeKind(err error) notify.Kind {
	var statusErr *apiclient.StatusError
	switch {
	case errors.Is(err, apiclient.ErrRateLimited):
		return notify.KindRateLimited
	case errors.As(err, &statusErr):
		return notify.KindUpstreamError
	default:
		return notify.KindNetworkError
	}
}

func userMessage(err error) string {
	switch noticeKind(err) {
	case notify.KindRateLimited:
		return "Too many searches right now. Please try again in a moment."
	case notify.KindUpstreamError:
		return "Search is temporarily unavailable. Please try again."
	default:
		return "Could not reach the search service. Check your connection and try again."
	}
}
