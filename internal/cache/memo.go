package cache

import (
	"context"
	"encoding/json"
	"marketplace/server/internal/metrics"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Loader fetches a value on a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

// Memo caches the results of a loader per key for a fixed TTL. Concurrent
// misses on one key share a single load. Failed loads are not cached.
type Memo[V any] struct {
	name    string
	ttl     time.Duration
	store   Store
	group   singleflight.Group
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// NewMemo creates a memo whose keys live under name in store.
func NewMemo[V any](name string, ttl time.Duration, store Store, logger *logrus.Logger, m *metrics.Metrics) *Memo[V] {
	if logger == nil {
		logger = logrus.New()
	}
	return &Memo[V]{
		name:    name,
		ttl:     ttl,
		store:   store,
		logger:  logger,
		metrics: m,
	}
}

func (m *Memo[V]) key(k string) string {
	return m.name + ":" + k
}

// Get returns the cached value of key, loading it when absent or stale.
// A store failure degrades to a direct load.
func (m *Memo[V]) Get(ctx context.Context, key string, load Loader[V]) (V, error) {
	full := m.key(key)

	if v, ok := m.lookup(ctx, full); ok {
		m.metrics.CacheLookup(m.name, true)
		return v, nil
	}
	m.metrics.CacheLookup(m.name, false)

	// The shared load must outlive any single caller giving up.
	loadCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(full, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		m.save(loadCtx, full, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Invalidate drops key.
func (m *Memo[V]) Invalidate(ctx context.Context, key string) error {
	return m.store.Delete(ctx, m.key(key))
}

// Purge drops every key of this memo.
func (m *Memo[V]) Purge(ctx context.Context) error {
	return m.store.DeletePrefix(ctx, m.name+":")
}

func (m *Memo[V]) lookup(ctx context.Context, full string) (V, bool) {
	var v V
	b, ok, err := m.store.Get(ctx, full)
	if err != nil {
		m.logger.WithError(err).WithField("key", full).Warn("Cache read failed")
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		m.logger.WithError(err).WithField("key", full).Warn("Discarding undecodable cache entry")
		return v, false
	}
	return v, true
}

func (m *Memo[V]) save(ctx context.Context, full string, v V) {
	b, err := json.Marshal(v)
	if err != nil {
		m.logger.WithError(err).WithField("key", full).Error("Failed to encode cache entry")
		return
	}
	if err := m.store.Set(ctx, full, b, m.ttl); err != nil {
		m.logger.WithError(err).WithField("key", full).Warn("Cache write failed")
	}
}
