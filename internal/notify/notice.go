// Package notify delivers user facing notices about failed searches.
package notify

import (
	"sync"
	"time"
)

// Kind classifies a notice.
type Kind string

const (
	KindRateLimited   Kind = "rate_limited"
	KindUpstreamError Kind = "upstream_error"
	KindNetworkError  Kind = "network_error"
)

// Notice is a transient message for the user, such as a toast.
type Notice struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	SessionID string    `json:"-"`
	RequestID string    `json:"requestId,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier accepts notices. Notify must not block.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type multi []Notifier

func (m multi) Notify(n Notice) {
	for _, to := range m {
		to.Notify(n)
	}
}

// Multi fans a notice out to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

// Inbox holds the notices of one session until its next response drains them.
// When full the oldest notice is dropped.
type Inbox struct {
	mu      sync.Mutex
	notices []Notice
	max     int
}

func NewInbox(max int) *Inbox {
	if max <= 0 {
		max = 10
	}
	return &Inbox{max: max}
}

func (i *Inbox) Notify(n Notice) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.notices) == i.max {
		i.notices = i.notices[1:]
	}
	i.notices = append(i.notices, n)
}

// Drain returns the pending notices and empties the inbox. It never returns nil.
func (i *Inbox) Drain() []Notice {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.notices
	i.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// Len returns the number of pending notices.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.notices)
}
