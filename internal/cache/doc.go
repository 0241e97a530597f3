// Package cache stores serialized transform results.
//
// Three backends share the Cache interface: an in-process LRU, Redis via
// go-redis, and a disabled cache that always misses. The Redis backend
// retries transient failures with backoff and can be wrapped in a circuit
// breaker so that an unavailable Redis stops costing request latency.
//
// Callers treat every error as a miss and fall back to computing the value.
//
//	c, err := cache.New(&cfg.Cache, logger)
//	key := cache.Key("transform", body)
//	if data, err := c.Get(ctx, key); err == nil {
//	    return data
//	}
package cache
