// Package cache holds the bounded, time-expiring caches used by the history viewer
// and the catalog browser.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry[V any] struct {
	key      string
	value    V
	expireAt time.Time
	elem     *list.Element
}

// TTL is a size-bounded map whose entries expire after a fixed duration.
// Past capacity the oldest-inserted key is evicted; re-setting a key does not
// refresh its insertion order (Touch does). Expired entries are swept on Set at
// most once per ttl, so keys that are never read again are still reclaimed.
// Safe for concurrent use.
type TTL[V any] struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	ttl       time.Duration
	max       int
	entries   map[string]*entry[V]
	order     *list.List // front = oldest insert
	nextSweep time.Time
	onEvict   func(key string, v V)
}

func NewTTL[V any](clock clockwork.Clock, ttl time.Duration, max int) *TTL[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if max <= 0 {
		max = 1
	}
	return &TTL[V]{
		clock:     clock,
		ttl:       ttl,
		max:       max,
		entries:   make(map[string]*entry[V]),
		order:     list.New(),
		nextSweep: clock.Now().Add(ttl),
	}
}

// OnEvict registers fn for entries dropped by expiry or capacity. Delete and
// Purge do not call it. fn runs after the cache lock is released.
func (c *TTL[V]) OnEvict(fn func(key string, v V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value for key. An expired entry is dropped and reported as a miss.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	if !c.clock.Now().Before(e.expireAt) {
		c.removeLocked(e)
		c.mu.Unlock()
		c.evicted([]*entry[V]{e})
		return zero, false
	}
	c.mu.Unlock()
	return e.value, true
}

func (c *TTL[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	now := c.clock.Now()
	dropped := c.sweepLocked(now)

	expireAt := now.Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expireAt = expireAt
		c.mu.Unlock()
		c.evicted(dropped)
		return
	}
	for len(c.entries) >= c.max {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		old := oldest.Value.(*entry[V])
		c.removeLocked(old)
		dropped = append(dropped, old)
	}
	e := &entry[V]{key: key, value: value, expireAt: expireAt}
	e.elem = c.order.PushBack(e)
	c.entries[key] = e
	c.mu.Unlock()
	c.evicted(dropped)
}

// Touch refreshes key's expiry and moves it to the back of the eviction order.
// It reports false when key is absent or already expired.
func (c *TTL[V]) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	now := c.clock.Now()
	if !ok || !now.Before(e.expireAt) {
		return false
	}
	e.expireAt = now.Add(c.ttl)
	c.order.MoveToBack(e.elem)
	return true
}

// sweepLocked drops every expired entry once per ttl.
func (c *TTL[V]) sweepLocked(now time.Time) []*entry[V] {
	if now.Before(c.nextSweep) {
		return nil
	}
	c.nextSweep = now.Add(c.ttl)
	var dropped []*entry[V]
	for el := c.order.Front(); el != nil; {
		e := el.Value.(*entry[V])
		el = el.Next()
		if !now.Before(e.expireAt) {
			c.removeLocked(e)
			dropped = append(dropped, e)
		}
	}
	return dropped
}

func (c *TTL[V]) evicted(es []*entry[V]) {
	if len(es) == 0 {
		return
	}
	c.mu.Lock()
	fn := c.onEvict
	c.mu.Unlock()
	if fn == nil {
		return
	}
	for _, e := range es {
		fn(e.key, e.value)
	}
}

func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// Purge drops every entry.
func (c *TTL[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.order.Init()
}

func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTL[V]) removeLocked(e *entry[V]) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}
