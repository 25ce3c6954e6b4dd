package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reading struct {
	Level string  `json:"level"`
	Temp  float64 `json:"temp"`
}

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("test", time.Minute, nil)

	var got reading
	found, err := s.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "dam:1", reading{Level: "72.5", Temp: 31.2}, time.Minute))

	found, err = s.Get(ctx, "dam:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, reading{Level: "72.5", Temp: 31.2}, got)

	m := s.GetMetrics()
	assert.Equal(t, int64(1), m.Hits)
	assert.Equal(t, int64(1), m.Misses)
	assert.Equal(t, int64(1), m.Sets)
	assert.Equal(t, 1, s.Size())
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("test", time.Minute, nil)

	require.NoError(t, s.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	var got string
	found, err := s.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_DeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("test", time.Minute, nil)

	require.NoError(t, s.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, s.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, s.Delete(ctx, "a"))

	var n int
	found, _ := s.Get(ctx, "a", &n)
	assert.False(t, found)

	s.Flush()
	assert.Equal(t, 0, s.Size())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("test", time.Minute, nil)

	list := []string{"pier", "dam"}
	require.NoError(t, s.Set(ctx, "list", list, time.Minute))
	list[0] = "changed"

	var got []string
	found, err := s.Get(ctx, "list", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"pier", "dam"}, got)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "weather:13.756:100.502", Key("weather", "13.756", "100.502"))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer client.Close()

	s := NewRedisStore(client, "fishspots-test", nil)
	require.NoError(t, s.Set(ctx, "r", reading{Level: "10"}, time.Minute))

	var got reading
	found, err := s.Get(ctx, "r", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "10", got.Level)

	require.NoError(t, s.Delete(ctx, "r"))
	found, err = s.Get(ctx, "r", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
