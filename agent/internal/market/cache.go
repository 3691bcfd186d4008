package market

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is a TTL cache of decoded upstream responses keyed by request URL.
// A zero TTL disables caching.
//
// Expiry is checked against the injected clock as well as by ttlcache
// itself, so tests can move time without sleeping.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	items *ttlcache.Cache[string, cacheEntry]
}

type cacheEntry struct {
	value    any
	storedAt time.Time
}

// NewCache returns a Cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl: ttl,
		now: time.Now,
		items: ttlcache.New[string, cacheEntry](
			ttlcache.WithTTL[string, cacheEntry](ttl),
			ttlcache.WithDisableTouchOnHit[string, cacheEntry](),
		),
	}
}

// newCacheWithClock is used in tests to control time.
func newCacheWithClock(ttl time.Duration, now func() time.Time) *Cache {
	c := NewCache(ttl)
	c.now = now
	return c
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key string) (any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	it := c.items.Get(key)
	if it == nil {
		return nil, false
	}
	e := it.Value()
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.items.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache) Set(key string, value any) {
	if c.ttl <= 0 {
		return
	}
	c.items.Set(key, cacheEntry{value: value, storedAt: c.now()}, ttlcache.DefaultTTL)
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	return c.items.Len()
}
