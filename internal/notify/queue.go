package notify

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue hands notices to subscribers on a background goroutine, keeping
// logging and metrics off the request path.
type Queue struct {
	items    chan Notice
	done     chan struct{}
	stopped  chan struct{}
	closed   bool
	started  bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(Notice) error
}

// NewQueue creates a queue with the specified buffer size
func NewQueue(bufferSize int, logger *logrus.Logger) *Queue {
	if logger == nil {
		logger = logrus.New()
	}
	return &Queue{
		items:    make(chan Notice, bufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   logger,
		handlers: make([]func(Notice) error, 0),
	}
}

// Push adds a notice to the queue without blocking.
func (q *Queue) Push(n Notice) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- n:
		q.logger.WithField("kind", n.Kind).Debug("Pushed notice to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Notify implements Notifier; a notice that cannot be queued is logged and dropped.
func (q *Queue) Notify(n Notice) {
	if err := q.Push(n); err != nil {
		q.logger.WithError(err).WithFields(logrus.Fields{
			"kind":     n.Kind,
			"queued":   q.Len(),
			"capacity": q.Cap(),
		}).Warn("Dropped notice")
	}
}

// Subscribe adds a handler function that will be called for each notice
func (q *Queue) Subscribe(handler func(Notice) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.process()
}

func (q *Queue) process() {
	defer close(q.stopped)
	for {
		select {
		case <-q.done:
			// Deliver what was accepted before Close.
			for {
				select {
				case n := <-q.items:
					q.dispatch(n)
				default:
					return
				}
			}
		case n := <-q.items:
			q.dispatch(n)
		}
	}
}

func (q *Queue) dispatch(n Notice) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(n); err != nil {
			q.logger.WithError(err).Error("Handler failed to process notice")
		}
	}
}

// Close stops accepting notices. If the queue was started it waits until the
// notices already accepted have been dispatched.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	close(q.done)
	q.mu.Unlock()

	if started {
		<-q.stopped
	}
	return nil
}

// Len returns the current number of queued notices
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap returns the number of notices the queue can hold
func (q *Queue) Cap() int {
	return cap(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *Queue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
