package livecalc

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/impact-engine/internal/waterfall"
)

// DefaultTTL is how long a live calculation stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// Key identifies one cached calculation.
type Key struct {
	OrgID     string
	ProcessID string
}

// String returns the shared cache key.
func (k Key) String() string {
	return "impact:livecalc:" + k.OrgID + ":" + k.ProcessID
}

// Entry is a cached per-unit live result.
type Entry struct {
	Result   waterfall.LiveResult `json:"result"`
	StoredAt time.Time            `json:"stored_at"`
}

// IsExpired reports whether the entry is older than ttl at now.
func (e Entry) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) >= ttl
}

// Cache stores live results. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key Key) (*Entry, error)
	Put(ctx context.Context, key Key, entry Entry) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[Key]Entry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key Key) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, key Key, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheRepository is the persistence surface backing StoreCache.
type CacheRepository interface {
	GetLiveCalcCache(ctx context.Context, key Key) (*Entry, error)
	PutLiveCalcCache(ctx context.Context, key Key, entry Entry) error
}

// StoreCache keeps live results in the application database.
type StoreCache struct {
	repo CacheRepository
}

// NewStoreCache wraps a repository as a Cache.
func NewStoreCache(repo CacheRepository) *StoreCache {
	return &StoreCache{repo: repo}
}

// Get implements Cache.
func (c *StoreCache) Get(ctx context.Context, key Key) (*Entry, error) {
	return c.repo.GetLiveCalcCache(ctx, key)
}

// Put implements Cache.
func (c *StoreCache) Put(ctx context.Context, key Key, entry Entry) error {
	return c.repo.PutLiveCalcCache(ctx, key, entry)
}
