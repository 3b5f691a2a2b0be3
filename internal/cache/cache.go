package cache

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// Event names a state change that invalidates subscribed cache entries.
type Event string

// List of cache invalidation events
const (
	EventOrderAccepted      Event = "orderAccepted"
	EventOrderStatusChanged Event = "orderStatusChanged"
	EventOrderCompleted     Event = "orderCompleted"
)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a get-or-compute cache with TTL validity and event-keyed
// invalidation. A fetch failure leaves the previous entry untouched, so
// stale-but-valid data can still be served on the next read.
type Cache[V any] struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]entry[V]
	subs    map[Event][]string
}

// New returns an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{
		now:     time.Now,
		entries: make(map[string]entry[V]),
		subs:    make(map[Event][]string),
	}
}

// Subscribe registers key to be dropped when any of the events fires.
func (c *Cache[V]) Subscribe(key string, events ...Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range events {
		c.subs[ev] = append(c.subs[ev], key)
	}
}

// GetOrCompute returns the cached value for key when a non-expired,
// non-forced entry exists; otherwise it invokes fetch, stores the result
// and returns it. On fetch error the zero value and the error are
// returned and the stored entry is left as it was.
func (c *Cache[V]) GetOrCompute(
	ctx context.Context,
	key string,
	ttl time.Duration,
	force bool,
	fetch func(context.Context) (V, error),
) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !force && c.now().Sub(e.fetchedAt) < ttl {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	// fetch runs outside the lock; a concurrent read may refetch, the
	// last completed write wins.
	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, fetchedAt: c.now()}
	c.mu.Unlock()
	return v, nil
}

// HasChanged compares candidate against the last stored value for key
// without mutating the cache. A missing entry counts as changed.
func (c *Cache[V]) HasChanged(key string, candidate V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return true
	}
	return !reflect.DeepEqual(e.value, candidate)
}

// InvalidateByEvent drops all entries subscribed to the event.
func (c *Cache[V]) InvalidateByEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.subs[ev] {
		delete(c.entries, key)
	}
}

// Invalidate drops a single entry.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry; subscriptions survive.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// WithNow overrides the clock, for tests.
func (c *Cache[V]) WithNow(now func() time.Time) *Cache[V] {
	if now != nil {
		c.now = now
	}
	return c
}
