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

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreContract(t *testing.T) {
	_, client := newMiniRedis(t)
	runChapterStoreContract(t, NewRedisStoreFromClient(client))
}

func TestRedisStoreKeysAndTTL(t *testing.T) {
	mr, client := newMiniRedis(t)
	s := NewRedisStoreFromClient(client, WithPrefix("test:"), WithTTL(time.Hour))

	require.NoError(t, s.Save(context.Background(), "p", "投标函", "致招标人"))

	got, err := mr.Get("test:p:投标函")
	require.NoError(t, err)
	assert.Equal(t, "致招标人", got)
	assert.Equal(t, time.Hour, mr.TTL("test:p:投标函"))
	members, err := mr.Members("test:p:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"投标函"}, members)
}

func TestRedisStoreListEmptyTender(t *testing.T) {
	_, client := newMiniRedis(t)
	titles, err := NewRedisStoreFromClient(client).List(context.Background(), "none")
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := newMiniRedis(t)
	s := NewRedisStoreFromClient(client)
	mr.Close()

	_, err := s.List(context.Background(), "p")
	assert.Error(t, err)
	assert.Error(t, s.Save(context.Background(), "p", "t", "c"))
}
