// Package cache holds the process-local bounded caches used by the relay:
// user display names, processed-message dedup, and fresh video URLs.
package cache

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the name cache and the dedup set.
const DefaultCapacity = 1000

// NameCache maps MAX user ids to display names so that a repeated sender
// never triggers a second directory lookup.
type NameCache struct {
	mu    sync.RWMutex
	names map[int64]string
	order []int64
	cap   int
}

func NewNameCache(capacity int) *NameCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &NameCache{
		names: make(map[int64]string, capacity),
		cap:   capacity,
	}
}

func (c *NameCache) Get(id int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[id]
	return name, ok
}

// Put stores a resolved name, evicting the oldest entry once the cache is
// full. Overwrites of an existing id do not grow the cache.
func (c *NameCache) Put(id int64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.names[id]; !exists {
		c.order = append(c.order, id)
		if len(c.order) > c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.names, oldest)
		}
	}
	c.names[id] = name
}

func (c *NameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

// DedupSet remembers recently processed message ids. Membership is the only
// dedup signal; entries are dropped oldest-first once the cap is reached.
type DedupSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	cap   int
}

func NewDedupSet(capacity int) *DedupSet {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &DedupSet{
		seen: make(map[string]struct{}, capacity),
		cap:  capacity,
	}
}

// Seen reports whether id was already recorded and records it if not.
func (d *DedupSet) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.cap {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	return false
}

func (d *DedupSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// VideoURLCache keeps authenticated video URLs for a bounded time window.
// MAX video links stay valid for roughly an hour; entries past the TTL are
// treated as absent and evicted lazily on lookup.
type VideoURLCache struct {
	mu      sync.Mutex
	entries map[string]videoEntry
	ttl     time.Duration
	now     func() time.Time
}

type videoEntry struct {
	url        string
	insertedAt time.Time
}

// DefaultVideoTTL mirrors the validity window of MAX media links.
const DefaultVideoTTL = time.Hour

func NewVideoURLCache(ttl time.Duration) *VideoURLCache {
	if ttl <= 0 {
		ttl = DefaultVideoTTL
	}
	return &VideoURLCache{
		entries: make(map[string]videoEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// GetFresh returns the cached URL for videoID when it is still within the
// TTL. A stale entry is evicted and reported as absent.
func (c *VideoURLCache) GetFresh(videoID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[videoID]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, videoID)
		return "", false
	}
	return entry.url, true
}

// Put records a freshly resolved video URL with the current timestamp.
func (c *VideoURLCache) Put(videoID, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[videoID] = videoEntry{url: url, insertedAt: c.now()}
}
