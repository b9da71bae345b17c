package extract

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL keeps extracted text for repeated reviews in one process
const DefaultCacheTTL = 10 * time.Minute

// Cache holds extracted text keyed by content hash and format.
type Cache struct {
	c *gocache.Cache
}

// NewCache creates an in-memory cache; expired entries are purged every ttl.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{c: gocache.New(ttl, ttl)}
}

// CacheKey namespaces a content hash
func CacheKey(sha256Hex string, f Format) string {
	return "ndacheck:v1:" + string(f) + ":" + sha256Hex
}

// Get returns cached text
func (c *Cache) Get(key string) (string, bool) {
	if v, ok := c.c.Get(key); ok {
		return v.(string), true
	}
	return "", false
}

// Set stores text with the default TTL
func (c *Cache) Set(key, text string) {
	c.c.SetDefault(key, text)
}

// Len number of live entries
func (c *Cache) Len() int {
	return c.c.ItemCount()
}
