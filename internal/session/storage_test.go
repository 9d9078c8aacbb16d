package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Remove(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remove(ctx, "never-set"))
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exerciseStorage(t, NewFileStorage(path))
}

func TestFileStoragePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, NewFileStorage(path).Set(ctx, DefaultSessionKey, "session_abc"))

	v, ok, err := NewFileStorage(path).Get(ctx, DefaultSessionKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "session_abc", v)
}

func TestFileStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStorage(path).Get(context.Background(), "k")
	assert.Error(t, err)

	// a write recovers the file
	require.NoError(t, NewFileStorage(path).Set(context.Background(), "k", "v"))
	v, ok, err := NewFileStorage(path).Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestRedisStorage(t *testing.T) {
	client, _ := setupTestRedis(t)
	exerciseStorage(t, NewRedisStorage(client, "vetbot", 0))
}

func TestRedisStorageUsesPrefixAndTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStorage(client, "kiosk-1", time.Hour)

	require.NoError(t, s.Set(context.Background(), DefaultSessionKey, "session_x"))

	got, err := mr.Get("kiosk-1:" + DefaultSessionKey)
	require.NoError(t, err)
	assert.Equal(t, "session_x", got)
	assert.Equal(t, time.Hour, mr.TTL("kiosk-1:"+DefaultSessionKey))
}

func TestRedisStorageUnavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStorage(client, "", 0)
	mr.Close()

	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisStoragePanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewRedisStorage(nil, "", 0) })
}
