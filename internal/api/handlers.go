package api

import (
	"context"
	"errors"
	"marketplace/server/internal/catalog"
	"marketplace/server/internal/filter"
	"marketplace/server/internal/models"
	"marketplace/server/internal/notify"
	"marketplace/server/internal/search"
	"marketplace/server/internal/session"
	"marketplace/server/internal/urlcodec"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionCookie names the cookie holding the session id.
const SessionCookie = "sid"

type Handler struct {
	sessions     *session.Registry
	areas        search.AreaSource
	logger       *logrus.Logger
	cookieSecure bool
	cookieMaxAge int
}

func NewHandler(sessions *session.Registry, areas search.AreaSource, logger *logrus.Logger, cookieSecure bool, cookieMaxAge int) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Handler{
		sessions:     sessions,
		areas:        areas,
		logger:       logger,
		cookieSecure: cookieSecure,
		cookieMaxAge: cookieMaxAge,
	}
}

type searchResponse struct {
	search.Snapshot
	Notices []notify.Notice `json:"notices"`
}

// session returns the caller's session, issuing the cookie for a new one.
func (h *Handler) session(c *gin.Context) *session.Session {
	id, _ := c.Cookie(SessionCookie)
	s, _ := h.sessions.Acquire(id)
	// Refreshed on every response for a sliding expiry.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, s.ID, h.cookieMaxAge, "/", "", h.cookieSecure, true)
	return s
}

// existing returns the caller's session without creating one.
func (h *Handler) existing(c *gin.Context) (*session.Session, bool) {
	id, err := c.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return h.sessions.Get(id)
}

// redirectHistory replaces the browser's current history entry by redirecting.
type redirectHistory struct {
	c      *gin.Context
	status int
}

func (r redirectHistory) Replace(url string) {
	r.c.Redirect(r.status, url)
}

// SearchProperties serves the search view addressed by the URL. A URL that is
// not in canonical form is redirected to its canonical form first.
func (h *Handler) SearchProperties(c *gin.Context) {
	raw := c.Request.URL.RawQuery
	state, sort, page := urlcodec.Decode(raw)

	redirect := !urlcodec.IsCanonical(raw)
	if prev, ok := h.existing(c); ok {
		if next, changed := followCityChange(prev.Search.Snapshot().Query.State, state); changed {
			state, redirect = next, true
		}
	}
	if redirect {
		urlcodec.Sync(redirectHistory{c: c, status: http.StatusFound}, urlcodec.SearchPath, state, sort, page)
		return
	}

	s := h.session(c)
	snap, err := s.Search.Search(c.Request.Context(), search.Query{State: state, Sort: sort, Page: page})
	h.respond(c, s, snap, err)
}

// RefreshProperties refetches the search the session currently shows.
func (h *Handler) RefreshProperties(c *gin.Context) {
	s := h.session(c)
	current := s.Search.Snapshot()
	snap, err := s.Search.Refresh(c.Request.Context(), current.Query)
	h.respond(c, s, snap, err)
}

// ClearFilters resets every filter of the session's search, city and area
// included, and sends the browser to the bare search URL.
func (h *Handler) ClearFilters(c *gin.Context) {
	var state filter.State
	if s, ok := h.existing(c); ok {
		state = s.Search.Snapshot().Query.State
	}
	state.Clear()
	urlcodec.Sync(redirectHistory{c: c, status: http.StatusFound}, urlcodec.SearchPath, state, urlcodec.DefaultSort, urlcodec.DefaultPage)
}

// filterChange is one edit of the session's filters. Only the fields present
// are applied: city first, then area, then the range.
type filterChange struct {
	City *string `json:"city"`
	// 0 drops the selected area
	AreaID *int              `json:"areaId"`
	Range  filter.RangeField `json:"range"`
	Min    string            `json:"min"`
	Max    string            `json:"max"`
}

// UpdateFilters applies a filter edit to the session's current search and
// sends the browser to the resulting search URL, back on the first page.
func (h *Handler) UpdateFilters(c *gin.Context) {
	var change filterChange
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	s := h.session(c)
	q := s.Search.Snapshot().Query.Normalized()
	state := q.State
	if err := h.applyChange(c.Request.Context(), &state, change); err != nil {
		status := upstreamStatus(err)
		if isFilterError(err) {
			status = http.StatusBadRequest
		}
		h.logger.WithError(err).WithField("session_id", s.ID).Debug("Rejected filter change")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	urlcodec.Sync(redirectHistory{c: c, status: http.StatusSeeOther}, urlcodec.SearchPath, state, q.Sort, urlcodec.DefaultPage)
}

func (h *Handler) applyChange(ctx context.Context, state *filter.State, change filterChange) error {
	if change.City != nil {
		state.SetCity(strings.TrimSpace(*change.City))
	}

	if change.AreaID != nil {
		if *change.AreaID == 0 {
			state.ClearArea()
		} else {
			var areas []models.Area
			if state.City != "" && h.areas != nil {
				var err error
				if areas, err = h.areas.AreasForCity(ctx, state.City); err != nil {
					return err
				}
			}
			if err := state.SetArea(*change.AreaID, areas); err != nil {
				return err
			}
		}
	}

	if change.Range != "" {
		return state.SetRange(change.Range, change.Min, change.Max)
	}
	return nil
}

func isFilterError(err error) bool {
	return errors.Is(err, filter.ErrNoCity) ||
		errors.Is(err, filter.ErrAreaNotInCity) ||
		errors.Is(err, filter.ErrInvalidRange) ||
		errors.Is(err, filter.ErrUnknownRange) ||
		errors.Is(err, catalog.ErrUnknownCity)
}

// followCityChange drops an area that next carried over from prev while
// moving to another city, the same way selecting a new city does.
func followCityChange(prev, next filter.State) (filter.State, bool) {
	if next.City == prev.City || next.AreaID == nil || prev.AreaID == nil || *next.AreaID != *prev.AreaID {
		return next, false
	}
	city := next.City
	next.City = prev.City
	next.SetCity(city)
	return next, true
}

// GetSearchState returns the session's current view without searching.
func (h *Handler) GetSearchState(c *gin.Context) {
	s := h.session(c)
	c.JSON(http.StatusOK, searchResponse{Snapshot: s.Search.Snapshot(), Notices: s.Inbox.Drain()})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

func (h *Handler) respond(c *gin.Context, s *session.Session, snap search.Snapshot, err error) {
	switch {
	case err == nil, errors.Is(err, search.ErrSuperseded):
	case errors.Is(err, search.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   err.Error(),
			"notices": s.Inbox.Drain(),
		})
		return
	case errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil:
		h.logger.WithField("session_id", s.ID).Debug("Client went away during search")
		c.Abort()
		return
	default:
		// Upstream failures are part of the view: status "error", results retained.
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, searchResponse{Snapshot: snap, Notices: s.Inbox.Drain()})
}
