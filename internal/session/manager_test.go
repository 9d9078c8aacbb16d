package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/vetbot/pkg/logging"
)

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage offline")
}
func (failingStorage) Set(context.Context, string, string) error { return errors.New("storage offline") }
func (failingStorage) Remove(context.Context, string) error       { return errors.New("storage offline") }

func newTestManager(storage Storage, host HostConfig) *Manager {
	return NewManager(storage, Options{Host: host, Logger: logging.Discard()})
}

func TestSessionIDCreatedOnceAndPersisted(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := newTestManager(storage, nil)

	first := m.SessionID(ctx)
	require.NotEmpty(t, first)
	assert.True(t, strings.HasPrefix(first, "session_"))
	assert.Equal(t, first, m.SessionID(ctx))

	stored, ok, _ := storage.Get(ctx, DefaultSessionKey)
	assert.True(t, ok)
	assert.Equal(t, first, stored)

	// a fresh manager over the same storage sees the same session
	assert.Equal(t, first, newTestManager(storage, nil).SessionID(ctx))
}

func TestSetSessionID(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStorage(), nil)

	require.NoError(t, m.SetSessionID(ctx, "session_custom"))
	assert.Equal(t, "session_custom", m.SessionID(ctx))
	assert.ErrorIs(t, m.SetSessionID(ctx, "  "), ErrEmptySessionID)
}

func TestResetProducesNewSessionID(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := newTestManager(storage, nil)

	before := m.SessionID(ctx)
	m.SetContext(ctx, Context{UserName: "Jane"})
	m.Reset(ctx)

	_, ok, _ := storage.Get(ctx, DefaultContextKey)
	assert.False(t, ok)
	assert.Nil(t, m.Context(ctx))

	after := m.SessionID(ctx)
	assert.NotEqual(t, before, after)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStorage(), nil)
	assert.Nil(t, m.Context(ctx))

	want := Context{UserID: "u-1", UserName: "Jane", PetName: "Rex", Source: "newsletter"}
	m.SetContext(ctx, want)

	got := m.Context(ctx)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestUpdateContextMergesKeys(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStorage(), nil)
	m.SetContext(ctx, Context{UserName: "Jane", PetName: "Rex"})

	merged := m.UpdateContext(ctx, Context{PetName: "Milo", Source: "ad"})
	assert.Equal(t, Context{UserName: "Jane", PetName: "Milo", Source: "ad"}, merged)
	assert.Equal(t, merged, *m.Context(ctx))
}

func TestUpdateContextWithoutExisting(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStorage(), nil)
	merged := m.UpdateContext(ctx, Context{UserName: "Sam"})
	assert.Equal(t, Context{UserName: "Sam"}, merged)
}

func TestHostContextWinsAndIsPersisted(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := newTestManager(storage, StaticHost(Context{UserName: "Host", PetName: "Bella"}))
	m.SetContext(ctx, Context{UserName: "Stored"})

	got := m.Context(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "Host", got.UserName)
	assert.Equal(t, "direct", got.Source)

	// without the host, the persisted copy is what the host supplied
	plain := newTestManager(storage, nil)
	persisted := plain.Context(ctx)
	require.NotNil(t, persisted)
	assert.Equal(t, "Host", persisted.UserName)
}

func TestEmptyStaticHostIsIgnored(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStorage(), StaticHost(Context{}))
	assert.Nil(t, m.Context(ctx))
}

func TestCorruptContextReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, DefaultContextKey, "{oops"))
	assert.Nil(t, newTestManager(storage, nil).Context(ctx))
}

func TestStorageFailuresDegrade(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(failingStorage{}, nil)

	id := m.SessionID(ctx)
	require.NotEmpty(t, id)
	assert.Equal(t, id, m.SessionID(ctx), "session id must stay stable while storage is down")
	assert.Nil(t, m.Context(ctx))

	m.SetContext(ctx, Context{UserName: "Jane"})
	m.Reset(ctx)
	assert.NotEqual(t, id, m.SessionID(ctx))
}

func TestGenerateSessionIDShape(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	a := GenerateSessionID(now)
	b := GenerateSessionID(now)

	parts := strings.Split(a, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "session", parts[0])
	assert.Equal(t, "loyw3v28", parts[1])
	assert.Len(t, parts[2], 13)
	assert.NotEqual(t, a, b)
}
