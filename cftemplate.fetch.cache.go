package cftemplate

import (
	"context"
	"io"
	"sync"
	"time"
)

// CachedFetcher wraps any FormFetcher with in-memory caching.
// Forms and publication lookups are cached with configurable TTL and size limits.
type CachedFetcher struct {
	fetcher FormFetcher
	config  CacheConfig

	mu     sync.RWMutex
	cache  map[string]*cacheEntry
	closed bool
}

// CacheConfig configures the caching behavior.
type CacheConfig struct {
	// TTL is how long cached entries remain valid.
	// Default: 5 minutes.
	TTL time.Duration

	// MaxEntries is the maximum number of cached entries.
	// When exceeded, the least recently accessed entry is evicted.
	// Default: 1000.
	MaxEntries int

	// NegativeCacheTTL is how long to cache "not found" results.
	// Set to 0 to disable negative caching. Other fetch failures are never cached.
	// Default: 30 seconds.
	NegativeCacheTTL time.Duration
}

// DefaultCacheConfig returns the default caching configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:              CacheDefaultTTL,
		MaxEntries:       CacheDefaultMaxEntries,
		NegativeCacheTTL: CacheDefaultNegativeTTL,
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries         int
	ValidEntries    int
	NegativeEntries int
}

type cacheEntry struct {
	form       *Form
	digest     string
	err        error
	cachedAt   time.Time
	accessedAt time.Time
	key        string
}

const (
	cacheKeyForm        = "form:"
	cacheKeyPublication = "publication:"
)

// NewCachedFetcher wraps a fetcher with caching.
func NewCachedFetcher(fetcher FormFetcher, config CacheConfig) *CachedFetcher {
	if config.TTL == 0 {
		config.TTL = CacheDefaultTTL
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = CacheDefaultMaxEntries
	}

	return &CachedFetcher{
		fetcher: fetcher,
		config:  config,
		cache:   make(map[string]*cacheEntry),
	}
}

// FetchForm returns a form, using the cache when available.
func (c *CachedFetcher) FetchForm(ctx context.Context, digest string) (*Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKeyForm + digest
	entry, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		if entry.err != nil {
			return nil, entry.err
		}
		return cloneForm(entry.form), nil
	}

	form, err := c.fetcher.FetchForm(ctx, digest)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, NewFetcherClosedError()
	}
	if err != nil {
		if IsNotFound(err) && c.config.NegativeCacheTTL > 0 {
			c.addEntry(&cacheEntry{key: key, err: err})
		}
		return nil, err
	}

	c.addEntry(&cacheEntry{key: key, form: cloneForm(form)})
	return form, nil
}

// FetchPublication resolves a publication, using the cache when available.
func (c *CachedFetcher) FetchPublication(ctx context.Context, publisher, project, edition string) (*Publication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref := PublicationRef{Publisher: publisher, Project: project, Edition: edition}
	key := cacheKeyPublication + ref.String()
	entry, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		if entry.err != nil {
			return nil, entry.err
		}
		return &Publication{Publisher: publisher, Project: project, Edition: edition, Digest: entry.digest}, nil
	}

	pub, err := c.fetcher.FetchPublication(ctx, publisher, project, edition)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, NewFetcherClosedError()
	}
	if err != nil {
		if IsNotFound(err) && c.config.NegativeCacheTTL > 0 {
			c.addEntry(&cacheEntry{key: key, err: err})
		}
		return nil, err
	}

	c.addEntry(&cacheEntry{key: key, digest: pub.Digest})
	return pub, nil
}

// lookup returns a valid entry for key, or nil on a miss.
func (c *CachedFetcher) lookup(key string) (*cacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, NewFetcherClosedError()
	}
	entry, ok := c.cache[key]
	if !ok || !c.isValid(entry) {
		return nil, nil
	}
	entry.accessedAt = time.Now()
	return entry, nil
}

// Close clears the cache and closes the wrapped fetcher if it can be closed.
func (c *CachedFetcher) Close() error {
	c.mu.Lock()
	c.closed = true
	c.cache = nil
	c.mu.Unlock()

	if closer, ok := c.fetcher.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// InvalidateAll clears the entire cache.
func (c *CachedFetcher) InvalidateAll() {
	c.mu.Lock()
	c.cache = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Stats returns cache statistics.
func (c *CachedFetcher) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var validCount, negativeCount int
	for _, entry := range c.cache {
		if c.isValid(entry) {
			if entry.err != nil {
				negativeCount++
			} else {
				validCount++
			}
		}
	}

	return CacheStats{
		Entries:         len(c.cache),
		ValidEntries:    validCount,
		NegativeEntries: negativeCount,
	}
}

func (c *CachedFetcher) isValid(entry *cacheEntry) bool {
	ttl := c.config.TTL
	if entry.err != nil {
		ttl = c.config.NegativeCacheTTL
	}
	return time.Since(entry.cachedAt) < ttl
}

// addEntry stores an entry, evicting if necessary.
// Caller must hold write lock.
func (c *CachedFetcher) addEntry(entry *cacheEntry) {
	if _, exists := c.cache[entry.key]; !exists && len(c.cache) >= c.config.MaxEntries {
		c.evictOldest()
	}

	now := time.Now()
	entry.cachedAt = now
	entry.accessedAt = now
	c.cache[entry.key] = entry
}

// evictOldest removes the least recently accessed entry.
// Caller must hold write lock.
func (c *CachedFetcher) evictOldest() {
	var oldest *cacheEntry
	for _, entry := range c.cache {
		if oldest == nil || entry.accessedAt.Before(oldest.accessedAt) {
			oldest = entry
		}
	}
	if oldest != nil {
		delete(c.cache, oldest.key)
	}
}
