package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quote struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
}

// jsonBackend mimics RedisCache storage: JSON on Set, unmarshal into the
// caller's destination on Get.
type jsonBackend struct {
	data   map[string][]byte
	closed bool
}

func newJSONBackend() *jsonBackend {
	return &jsonBackend{data: make(map[string][]byte)}
}

func (b *jsonBackend) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	b.data[key] = raw
	return nil
}

func (b *jsonBackend) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := b.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (b *jsonBackend) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(b.data, key)
	}
	return nil
}

func (b *jsonBackend) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, key := range keys {
		if _, ok := b.data[key]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (b *jsonBackend) Close() error {
	b.closed = true
	return nil
}

func TestMemoryCacheTypedGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	stored := []quote{{ID: "KX-A", Price: 0.4}, {ID: "KX-B", Price: 0.7}}
	require.NoError(t, mc.Set(ctx, "quotes", stored, time.Minute))

	var typed []quote
	require.NoError(t, mc.Get(ctx, "quotes", &typed))
	assert.Equal(t, stored, typed)

	var untyped interface{}
	require.NoError(t, mc.Get(ctx, "quotes", &untyped))
	assert.Equal(t, stored, untyped)

	require.NoError(t, mc.Set(ctx, "note", "hello", time.Minute))
	var s string
	require.NoError(t, mc.Get(ctx, "note", &s))
	assert.Equal(t, "hello", s)

	var wrong map[string]string
	assert.Error(t, mc.Get(ctx, "quotes", &wrong))
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var q quote
	assert.ErrorIs(t, mc.Get(context.Background(), "absent", &q), ErrCacheMiss)
}

func TestLayeredCachePromotesDecodedValue(t *testing.T) {
	backend := newJSONBackend()
	lc := NewLayeredCache(backend)
	defer lc.Close()
	ctx := context.Background()

	stored := []quote{{ID: "KX-A", Price: 0.4}}
	require.NoError(t, backend.Set(ctx, "quotes", stored, time.Minute))

	var first []quote
	require.NoError(t, lc.Get(ctx, "quotes", &first))
	assert.Equal(t, stored, first)

	// Drop the backend key: the promoted memory entry must hold the
	// decoded value itself, not a pointer the caller may reuse.
	require.NoError(t, backend.Delete(ctx, "quotes"))
	first = nil

	var second []quote
	require.NoError(t, lc.Get(ctx, "quotes", &second))
	assert.Equal(t, stored, second)
}

func TestLayeredCacheWriteThrough(t *testing.T) {
	backend := newJSONBackend()
	lc := NewLayeredCache(backend)
	defer lc.Close()
	ctx := context.Background()

	stored := []quote{{ID: "KX-B", Price: 0.6}}
	require.NoError(t, lc.Set(ctx, "quotes", stored, time.Minute))

	ok, err := backend.Exists(ctx, "quotes")
	require.NoError(t, err)
	assert.True(t, ok)

	var got []quote
	require.NoError(t, lc.Get(ctx, "quotes", &got))
	assert.Equal(t, stored, got)
}

func TestLayeredCacheCloseClosesBackend(t *testing.T) {
	backend := newJSONBackend()
	lc := NewLayeredCache(backend)
	require.NoError(t, lc.Close())
	assert.True(t, backend.closed)
}
