package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
)

// Key identifies one fetch: a series id and the requested window.
type Key struct {
	SeriesID string
	Window   models.DateRange
}

// String renders the key as "SERIES:start:end" with empty sides for open bounds.
func (k Key) String() string {
	s, e := "", ""
	if !k.Window.Start.IsZero() {
		s = k.Window.Start.Format(models.DateLayout)
	}
	if !k.Window.End.IsZero() {
		e = k.Window.End.Format(models.DateLayout)
	}
	return k.SeriesID + ":" + s + ":" + e
}

// Entry is a cached fetch result. FetchedAt is when FRED answered; callers decide freshness from it.
type Entry struct {
	Series    models.ObservationSeries `json:"series"`
	FetchedAt time.Time                `json:"fetchedAt"`
}

// Cache stores fetch results. ttl bounds how long a backend keeps an entry; it is
// an eviction hint, not the freshness check.
type Cache interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Set(ctx context.Context, key Key, value Entry, ttl time.Duration) error
}

// InMemoryCache implements Cache with a mutex-guarded map. Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
	now  func() time.Time
}

type cacheEntry struct {
	value     Entry
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get returns (entry, true, nil) on hit and (zero, false, nil) on miss or eviction.
func (c *InMemoryCache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key.String()
	e, ok := c.data[k]
	if !ok {
		return Entry{}, false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.data, k)
		return Entry{}, false, nil
	}
	return e.value, true, nil
}

// Set stores value until ttl elapses.
func (c *InMemoryCache) Set(ctx context.Context, key Key, value Entry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key.String()] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired ones included until next access.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
