// Package session keeps one search view per browser.
package session

import (
	"marketplace/server/internal/metrics"
	"marketplace/server/internal/notify"
	"marketplace/server/internal/search"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is the server side of one browser's search view.
type Session struct {
	ID     string
	Search *search.Orchestrator
	Inbox  *notify.Inbox

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Factory builds the orchestrator of a new session. inbox receives the
// session's notices.
type Factory func(id string, inbox *notify.Inbox) *search.Orchestrator

type Options struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	InboxSize     int
	// Live sessions kept at most; the least recently seen one makes room
	MaxSessions int
}

// Registry maps session ids to sessions and expires idle ones.
type Registry struct {
	factory Factory
	opts    Options
	logger  *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRegistry(factory Factory, opts Options, logger *logrus.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 10000
	}

	return &Registry{
		factory:  factory,
		opts:     opts,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
}

// Get returns the live session with id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.touch(r.now())
	return s, true
}

// Acquire returns the session with id, creating a session with a fresh id
// when id is unknown or malformed. created reports whether a new session was made.
func (r *Registry) Acquire(id string) (s *Session, created bool) {
	if s, ok := r.Get(id); ok {
		return s, false
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}

	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		s.touch(r.now())
		return s, false
	}

	var evicted *Session
	if len(r.sessions) >= r.opts.MaxSessions {
		evicted = r.oldestLocked()
		delete(r.sessions, evicted.ID)
	}

	inbox := notify.NewInbox(r.opts.InboxSize)
	s = &Session{
		ID:       id,
		Search:   r.factory(id, inbox),
		Inbox:    inbox,
		lastSeen: r.now(),
	}
	r.sessions[id] = s
	r.mu.Unlock()

	if evicted != nil {
		evicted.Search.Cancel()
		r.metrics.SessionClosed()
		r.logger.WithField("session_id", evicted.ID).Warn("Session limit reached, evicted least recently seen session")
	}
	r.metrics.SessionOpened()
	r.logger.WithField("session_id", id).Debug("Opened search session")
	return s, true
}

// oldestLocked returns the least recently seen session. r.mu must be held and
// the map must not be empty.
func (r *Registry) oldestLocked() *Session {
	var oldest *Session
	for _, s := range r.sessions {
		if oldest == nil || s.idleSince().Before(oldest.idleSince()) {
			oldest = s
		}
	}
	return oldest
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the idle timeout and cancels
// their searches. It returns the number removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.opts.IdleTimeout)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Search.Cancel()
		r.metrics.SessionClosed()
	}
	if len(expired) > 0 {
		r.logger.WithFields(logrus.Fields{
			"expired":   len(expired),
			"remaining": r.Len(),
		}).Info("Expired idle search sessions")
	}
	return len(expired)
}

// Start runs the janitor that sweeps idle sessions.
func (r *Registry) Start() {
	r.wg.Add(1)
	go r.runJanitor()
}

func (r *Registry) runJanitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Stop halts the janitor and waits for it to exit.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}
