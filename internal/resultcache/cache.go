// Package resultcache memoizes computed report results for a short time.
package resultcache

import (
	"container/list"
	"sync"
	"time"
)

const (
	DefaultCapacity = 5
	DefaultTTL      = 5 * time.Minute
)

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// Cache holds at most Capacity entries, each valid for TTL after it was put.
// When full, the entry inserted first is evicted, whatever its last access.
// Expired entries are dropped lazily on Get.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	order    *list.List
	items    map[K]*list.Element
}

type Option func(*options)

type options struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	o := options{capacity: DefaultCapacity, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		capacity: o.capacity,
		ttl:      o.ttl,
		now:      o.now,
		order:    list.New(),
		items:    make(map[K]*list.Element, o.capacity),
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.removeElement(el)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key. An existing key is overwritten, its TTL
// restarts and it becomes the newest entry.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(key, value)
}

// PutIf stores value only when ok reports true. ok runs under the cache lock,
// so it cannot interleave with Invalidate.
func (c *Cache[K, V]) PutIf(key K, value V, ok func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok() {
		return false
	}
	c.put(key, value)
	return true
}

func (c *Cache[K, V]) put(key K, value V) {
	now := c.now()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.storedAt = now
		c.order.MoveToBack(el)
		return
	}

	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, value: value, storedAt: now})
	for c.order.Len() > c.capacity {
		c.removeElement(c.order.Front())
	}
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Invalidate drops every entry.
func (c *Cache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[K]*list.Element, c.capacity)
}

// Len counts resident entries, expired ones included until they are accessed.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
}
