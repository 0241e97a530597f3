package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avagroups/internal/config"
	"github.com/vyrodovalexey/avagroups/internal/observability"
)

const cleanupInterval = time.Minute

// cacheTracer is package level so tests can swap the provider.
var cacheTracer = otel.Tracer("avagroups/cache")

// MemoryCache is an in-process LRU cache with per-entry expiry.
type MemoryCache struct {
	logger     observability.Logger
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List

	hits   atomic.Int64
	misses atomic.Int64

	stopCh    chan struct{}
	closeOnce sync.Once
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemory creates an LRU cache holding at most maxEntries values. A
// non-positive maxEntries uses the configured default.
func NewMemory(maxEntries int, defaultTTL time.Duration, logger observability.Logger) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = config.DefaultCacheMaxEntries
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	c := &MemoryCache{
		logger:     logger,
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		now:        time.Now,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stopCh:     make(chan struct{}),
	}

	go c.cleanupLoop()

	logger.Info("memory cache initialized",
		observability.Int("maxEntries", maxEntries),
		observability.Duration("defaultTTL", defaultTTL))

	return c
}

func (c *MemoryCache) startSpan(ctx context.Context, op, key string) trace.Span {
	_, span := cacheTracer.Start(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendMemory),
			attribute.String("cache.key", key),
		),
	)
	return span
}

// Get implements Cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	span := c.startSpan(ctx, "Get", key)
	defer span.End()

	m := GetMetrics()
	start := time.Now()
	defer func() {
		m.operationDuration.WithLabelValues(BackendMemory, "get").Observe(time.Since(start).Seconds())
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if ok && elem.Value.(*memoryEntry).expired(c.now()) {
		c.removeElement(elem)
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		m.missesTotal.WithLabelValues(BackendMemory).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	}

	c.eviction.MoveToFront(elem)
	c.hits.Add(1)
	m.hitsTotal.WithLabelValues(BackendMemory).Inc()

	value := elem.Value.(*memoryEntry).value
	span.SetAttributes(
		attribute.Bool("cache.hit", true),
		attribute.Int("cache.value_size", len(value)),
	)
	return value, nil
}

// Set implements Cache. A negative ttl stores the value without expiry.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	span := c.startSpan(ctx, "Set", key)
	defer span.End()

	m := GetMetrics()
	start := time.Now()
	defer func() {
		m.operationDuration.WithLabelValues(BackendMemory, "set").Observe(time.Since(start).Seconds())
	}()

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	entry := &memoryEntry{key: key, value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value = entry
		c.eviction.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.eviction.PushFront(entry)
	for c.eviction.Len() > c.maxEntries {
		c.removeElement(c.eviction.Back())
		m.evictionsTotal.WithLabelValues(BackendMemory).Inc()
	}
	m.sizeGauge.WithLabelValues(BackendMemory).Set(float64(c.eviction.Len()))

	c.logger.Debug("cache set",
		observability.String("key", key),
		observability.Duration("ttl", ttl),
		observability.Int("size", c.eviction.Len()))
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	span := c.startSpan(ctx, "Delete", key)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
		GetMetrics().sizeGauge.WithLabelValues(BackendMemory).Set(float64(c.eviction.Len()))
	}
	return nil
}

// Ping implements Cache.
func (c *MemoryCache) Ping(context.Context) error { return nil }

// Backend implements Cache.
func (c *MemoryCache) Backend() string { return BackendMemory }

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   int64(c.Len()),
	}
}

// Close stops the cleanup goroutine and drops every entry.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)

		c.mu.Lock()
		c.items = make(map[string]*list.Element)
		c.eviction.Init()
		c.mu.Unlock()

		c.logger.Info("memory cache closed")
	})
	return nil
}

// removeElement must be called with the lock held.
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryEntry).key)
}

func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// cleanup removes expired entries under a single lock.
func (c *MemoryCache) cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		GetMetrics().sizeGauge.WithLabelValues(BackendMemory).Set(float64(c.eviction.Len()))
		c.logger.Debug("cache cleanup completed", observability.Int("removed", removed))
	}
	return removed
}
