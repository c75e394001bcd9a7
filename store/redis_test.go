package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStoreContract(t *testing.T) {
	s, _ := newTestRedisStore(t)
	runStoreContract(t, s)
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, WithTTL(time.Minute))

	_, err := s.SaveIfVersion(ctx, &Record{ID: "t-1", Resource: "session", State: "open"}, 0)
	require.NoError(t, err)

	rec, err := s.Load(ctx, "session", "t-1")
	require.NoError(t, err)
	require.NotNil(t, rec)

	mr.FastForward(2 * time.Minute)

	rec, err = s.Load(ctx, "session", "t-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, WithKeyPrefix("workflows:"))

	_, err := s.SaveIfVersion(ctx, &Record{ID: "p-1", Resource: "Order", State: "draft"}, 0)
	require.NoError(t, err)

	assert.True(t, mr.Exists("workflows:order/p-1"))
}
