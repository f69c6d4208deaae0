package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"portfolio-frontier/internal/model"
)

type cacheEntry struct {
	points    []model.PricePoint
	expiresAt time.Time
}

// ResponseCache keeps downloaded price histories in memory for a TTL.
// It is disabled unless ENABLE_PRICE_CACHE=true, and never enabled when
// API_ENV=production.
type ResponseCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

var (
	globalCache *ResponseCache
	cacheOnce   sync.Once
)

// GetCache returns the process cache, or nil when caching is disabled.
func GetCache() *ResponseCache {
	if os.Getenv("ENABLE_PRICE_CACHE") != "true" || os.Getenv("API_ENV") == "production" {
		return nil
	}
	cacheOnce.Do(func() {
		ttl := time.Hour
		if s := os.Getenv("PRICE_CACHE_TTL"); s != "" {
			if parsed, err := time.ParseDuration(s); err == nil {
				ttl = parsed
			}
		}
		globalCache = NewResponseCache(ttl)
		go globalCache.cleanup(5 * time.Minute)
	})
	return globalCache
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: map[string]cacheEntry{}, ttl: ttl, now: time.Now}
}

func (c *ResponseCache) Get(key string) ([]model.PricePoint, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return append([]model.PricePoint(nil), e.points...), true
}

func (c *ResponseCache) Set(key string, points []model.PricePoint) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = cacheEntry{
		points:    append([]model.PricePoint(nil), points...),
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *ResponseCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = map[string]cacheEntry{}
}

func (c *ResponseCache) purgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
}

func (c *ResponseCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		c.purgeExpired()
	}
}

// CacheKey identifies one symbol/date-range download.
func CacheKey(symbol string, start, end time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", symbol, start.Format(dateLayout), end.Format(dateLayout))))
	return hex.EncodeToString(sum[:])
}
