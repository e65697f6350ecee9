package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("api", 3, 0.001), "token %d", i)
	}
	assert.False(t, l.Allow("api", 3, 0.001))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("a", 1, 0.001))
	assert.False(t, l.Allow("a", 1, 0.001))
	assert.True(t, l.Allow("b", 1, 0.001))
}

func TestAllowRefills(t *testing.T) {
	l := New()

	require.True(t, l.Allow("r", 1, 100))
	require.False(t, l.Allow("r", 1, 100))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Allow("r", 1, 100))
}

func TestWaitReturnsWhenTokenAvailable(t *testing.T) {
	l := New()
	require.True(t, l.Allow("w", 1, 200))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "w", 1, 200))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitHonorsContext(t *testing.T) {
	l := New()
	require.True(t, l.Allow("c", 1, 0.0001))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "c", 1, 0.0001)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
