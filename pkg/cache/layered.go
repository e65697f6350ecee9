package cache

import (
	"context"
	"reflect"
	"time"
)

// Redis hits are promoted into the memory layer with a short TTL so a
// stale L1 entry cannot outlive the backing key by much.
const promoteTTL = time.Minute

// LayeredCache is a two-level cache: in-process memory in front of a
// shared backend, normally Redis. Writes go through to both, reads
// promote backend hits into memory.
type LayeredCache struct {
	memCache *MemoryCache
	backend  Service
}

// NewLayeredCache creates a layered cache over an existing backend.
func NewLayeredCache(backend Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		memCache: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		backend:  backend,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.backend.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.memCache.Set(ctx, key, value, expiration)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.memCache.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.backend.Get(ctx, key, dest); err != nil {
		return err
	}
	// Promote the decoded value, not the destination pointer: the caller
	// owns dest and may overwrite it after this call returns.
	if dv := reflect.ValueOf(dest); dv.Kind() == reflect.Ptr && !dv.IsNil() {
		_ = lc.memCache.Set(ctx, key, dv.Elem().Interface(), promoteTTL)
	}
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	return lc.backend.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.backend.Exists(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	if closer, ok := lc.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
