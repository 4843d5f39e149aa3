package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

const (
	// DefaultSize bounds every lookup cache.
	DefaultSize = 100
	// DefaultTTL is how long a memoized lookup stays valid.
	DefaultTTL = time.Hour
)

// Memo memoizes successful results of a remote read keyed by its arguments.
//
// Entries expire after the TTL and the least recently used entry is evicted
// once the size bound is reached. Failed producer calls are never stored.
// Concurrent misses on the same key may each call the producer.
type Memo[K comparable, V any] struct {
	name    string
	lru     *expirable.LRU[K, V]
	metrics *telemetry.CacheMetrics
}

// NewMemo creates a lookup cache. Non-positive size or ttl fall back to the defaults.
func NewMemo[K comparable, V any](name string, size int, ttl time.Duration, metrics *telemetry.CacheMetrics) *Memo[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memo[K, V]{
		name:    name,
		lru:     expirable.NewLRU[K, V](size, nil, ttl),
		metrics: metrics,
	}
}

// Do returns the cached value for key or calls producer and stores its result
// when it succeeds.
func (m *Memo[K, V]) Do(ctx context.Context, key K, producer func(context.Context) (V, error)) (V, error) {
	if v, ok := m.lru.Get(key); ok {
		m.metrics.Hit(m.name)
		return v, nil
	}
	m.metrics.Miss(m.name)

	v, err := producer(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	m.lru.Add(key, v)
	return v, nil
}

// Invalidate removes every entry whose key satisfies match and returns how
// many were removed.
func (m *Memo[K, V]) Invalidate(match func(K) bool) int {
	removed := 0
	for _, k := range m.lru.Keys() {
		if match(k) && m.lru.Remove(k) {
			removed++
		}
	}
	return removed
}

// Purge drops every entry.
func (m *Memo[K, V]) Purge() {
	m.lru.Purge()
}

// Len returns the number of live entries.
func (m *Memo[K, V]) Len() int {
	return m.lru.Len()
}
