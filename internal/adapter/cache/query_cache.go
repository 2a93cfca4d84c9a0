package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// QueryCache is an LRU cache of search results with a TTL. Invalidate
// bumps a generation counter so that entries computed before a write are
// never served after it.
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	indexGen uint64
}

type cacheEntry struct {
	results   []domain.SearchResult
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Key identifies one search: the retrieval mode, space, query and k.
type Key struct {
	Mode    string
	SpaceID string
	Query   string
	TopK    int
}

func (k Key) hash() string {
	data := fmt.Sprintf("%s\x00%s\x00%d\x00%s", k.Mode, k.SpaceID, k.TopK, k.Query)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// Get returns a copy of the cached results for k. Expired entries and
// entries from before the last Invalidate are dropped on the way.
func (c *QueryCache) Get(k Key) ([]domain.SearchResult, bool) {
	key := k.hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != c.indexGen {
		c.remove(key)
		return nil, false
	}

	c.moveToEnd(key)
	return cloneResults(entry.results), true
}

// putAt stores results only if no invalidation happened since gen was read.
func (c *QueryCache) putAt(k Key, results []domain.SearchResult, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.indexGen {
		return
	}

	key := k.hash()
	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.maxSize && len(c.order) > 0 {
			c.remove(c.order[0])
		}
		c.order = append(c.order, key)
	} else {
		c.moveToEnd(key)
	}
	c.entries[key] = &cacheEntry{
		results:   cloneResults(results),
		timestamp: time.Now(),
		indexGen:  c.indexGen,
	}
}

func (c *QueryCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexGen
}

func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.indexGen++
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// remove drops key from both the map and the LRU order. Callers hold mu.
func (c *QueryCache) remove(key string) {
	delete(c.entries, key)
	c.removeFromOrder(key)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func cloneResults(results []domain.SearchResult) []domain.SearchResult {
	return append([]domain.SearchResult{}, results...)
}

// CachedRetriever serves repeated searches from a QueryCache.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
	mode      string
}

// NewCachedRetriever wraps retriever. mode separates the entries of
// retrievers that share one cache.
func NewCachedRetriever(retriever port.Retriever, cache *QueryCache, mode string) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
		mode:      mode,
	}
}

func (r *CachedRetriever) Search(ctx context.Context, spaceID, query string, k int) ([]domain.SearchResult, error) {
	key := Key{Mode: r.mode, SpaceID: spaceID, Query: query, TopK: k}
	if results, hit := r.cache.Get(key); hit {
		logger.Debug("cache: hit for %s search in %q", r.mode, spaceID)
		return results, nil
	}

	gen := r.cache.generation()
	results, err := r.retriever.Search(ctx, spaceID, query, k)
	if err != nil {
		return nil, err
	}

	r.cache.putAt(key, results, gen)
	return results, nil
}
