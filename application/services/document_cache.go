package services

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/joeleaver/pimble/domain/crdt"
	"go.uber.org/zap"
)

// DocumentCache keeps decoded documents hot so repeated reads skip the
// decode. Entries are keyed "<storeID>/<nodeID>", evicted least recently
// used first, weighted by operation count so one enormous document cannot
// crowd out everything else. Callers must hold the owning store's lock
// while touching a cached document; the cache only guards its own maps.
type DocumentCache struct {
	mu        sync.Mutex
	items     map[string]*docEntry
	lruList   *list.List
	maxItems  int
	maxWeight int
	weight    int
	ttl       time.Duration

	hits      int64
	misses    int64
	evictions int64

	logger *zap.Logger
	stop   chan struct{}
	once   sync.Once
}

type docEntry struct {
	key        string
	doc        *crdt.Document
	weight     int
	expiry     time.Time
	lruElement *list.Element
}

// NewDocumentCache creates a cache bounded by entry count and total
// operation weight. A zero ttl disables expiry.
func NewDocumentCache(maxItems, maxWeight int, ttl time.Duration, logger *zap.Logger) *DocumentCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentCache{
		items:     make(map[string]*docEntry),
		lruList:   list.New(),
		maxItems:  maxItems,
		maxWeight: maxWeight,
		ttl:       ttl,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

func cacheKey(storeID, nodeID string) string {
	return storeID + "/" + nodeID
}

// Get returns the cached document for a node, if present and fresh.
func (c *DocumentCache) Get(storeID, nodeID string) (*crdt.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[cacheKey(storeID, nodeID)]
	if !exists {
		c.misses++
		return nil, false
	}
	if c.ttl > 0 && time.Now().After(entry.expiry) {
		c.removeEntry(entry)
		c.misses++
		return nil, false
	}
	c.lruList.MoveToFront(entry.lruElement)
	c.hits++
	return entry.doc, true
}

// Put stores a decoded document, evicting as needed to stay in bounds.
func (c *DocumentCache) Put(storeID, nodeID string, doc *crdt.Document) {
	if doc == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(storeID, nodeID)
	weight := doc.OpCount()
	if weight < 1 {
		weight = 1
	}
	if c.maxWeight > 0 && weight > c.maxWeight {
		c.logger.Warn("Document too heavy to cache",
			zap.String("key", key),
			zap.Int("weight", weight),
			zap.Int("maxWeight", c.maxWeight),
		)
		return
	}

	if existing, exists := c.items[key]; exists {
		c.removeEntry(existing)
	}
	for (c.maxWeight > 0 && c.weight+weight > c.maxWeight ||
		c.maxItems > 0 && len(c.items) >= c.maxItems) && c.lruList.Len() > 0 {
		oldest := c.lruList.Back()
		if oldest == nil {
			break
		}
		c.removeEntry(oldest.Value.(*docEntry))
		c.evictions++
	}

	entry := &docEntry{
		key:    key,
		doc:    doc,
		weight: weight,
		expiry: time.Now().Add(c.ttl),
	}
	entry.lruElement = c.lruList.PushFront(entry)
	c.items[key] = entry
	c.weight += weight
}

// Invalidate drops one node's document.
func (c *DocumentCache) Invalidate(storeID, nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[cacheKey(storeID, nodeID)]; exists {
		c.removeEntry(entry)
	}
}

// InvalidateStore drops every document belonging to a store.
func (c *DocumentCache) InvalidateStore(storeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := storeID + "/"
	dropped := 0
	for key, entry := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeEntry(entry)
			dropped++
		}
	}
	if dropped > 0 {
		c.logger.Debug("Invalidated cached documents for store",
			zap.String("storeID", storeID),
			zap.Int("count", dropped),
		)
	}
}

func (c *DocumentCache) removeEntry(entry *docEntry) {
	if entry.lruElement != nil {
		c.lruList.Remove(entry.lruElement)
	}
	delete(c.items, entry.key)
	c.weight -= entry.weight
}

// Stats reports hit counters for observability.
func (c *DocumentCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := float64(0)
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Items:     len(c.items),
		Weight:    c.weight,
		HitRate:   hitRate,
	}
}

// CacheStats holds cache counters.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Items     int
	Weight    int
	HitRate   float64
}

// StartCleanup sweeps expired entries until Stop is called. A zero ttl
// makes this a no-op.
func (c *DocumentCache) StartCleanup(interval time.Duration) {
	if c.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.cleanupExpired()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine.
func (c *DocumentCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *DocumentCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var expired []*docEntry
	for _, entry := range c.items {
		if now.After(entry.expiry) {
			expired = append(expired, entry)
		}
	}
	for _, entry := range expired {
		c.removeEntry(entry)
	}
	if len(expired) > 0 {
		c.logger.Debug("Dropped expired cached documents", zap.Int("count", len(expired)))
	}
}
