package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/vetbot/pkg/logging"
)

const (
	DefaultSessionKey = "vetbot_session_id"
	DefaultContextKey = "vetbot_context"

	defaultSource = "direct"
)

// ErrEmptySessionID is returned when SetSessionID is given a blank token.
var ErrEmptySessionID = errors.New("session: session id cannot be empty")

// Context is ambient visitor metadata forwarded with every request.
type Context struct {
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
	PetName  string `json:"petName,omitempty"`
	Source   string `json:"source,omitempty"`
}

// IsZero reports whether no field is set.
func (c Context) IsZero() bool {
	return c == Context{}
}

// Merge returns c with every non-empty field of patch applied over it.
func (c Context) Merge(patch Context) Context {
	if patch.UserID != "" {
		c.UserID = patch.UserID
	}
	if patch.UserName != "" {
		c.UserName = patch.UserName
	}
	if patch.PetName != "" {
		c.PetName = patch.PetName
	}
	if patch.Source != "" {
		c.Source = patch.Source
	}
	return c
}

// HostConfig supplies context configured by the embedding host. ok=false means
// the host configured nothing.
type HostConfig interface {
	HostContext() (ctx Context, ok bool)
}

// HostConfigFunc adapts a function to HostConfig.
type HostConfigFunc func() (Context, bool)

func (f HostConfigFunc) HostContext() (Context, bool) { return f() }

// StaticHost returns a HostConfig that always yields c, or nothing when c is zero.
func StaticHost(c Context) HostConfig {
	return HostConfigFunc(func() (Context, bool) {
		return c, !c.IsZero()
	})
}

// Options tunes a Manager.
type Options struct {
	SessionKey string
	ContextKey string
	Host       HostConfig
	Logger     *logging.Logger
	Now        func() time.Time
}

// Manager owns the durable session token and the optional user context.
// Storage failures are logged and treated as "nothing persisted".
type Manager struct {
	storage    Storage
	sessionKey string
	contextKey string
	host       HostConfig
	logger     *logging.Logger
	now        func() time.Time

	mu     sync.Mutex
	cached string
}

// NewManager builds a Manager over storage.
func NewManager(storage Storage, opts Options) *Manager {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if opts.SessionKey == "" {
		opts.SessionKey = DefaultSessionKey
	}
	if opts.ContextKey == "" {
		opts.ContextKey = DefaultContextKey
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		storage:    storage,
		sessionKey: opts.SessionKey,
		contextKey: opts.ContextKey,
		host:       opts.Host,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// SessionID returns the persisted token, creating and persisting one on first use.
// It never returns an empty string.
func (m *Manager) SessionID(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.read(ctx, m.sessionKey); ok && strings.TrimSpace(id) != "" {
		m.cached = id
		return id
	}
	if m.cached == "" {
		m.cached = GenerateSessionID(m.now())
		m.logger.Debug("session: created session id", "session_id", m.cached)
	}
	m.write(ctx, m.sessionKey, m.cached)
	return m.cached
}

// SetSessionID overwrites the persisted token. A blank token is rejected with
// ErrEmptySessionID and the stored one is kept.
func (m *Manager) SetSessionID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptySessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = id
	m.write(ctx, m.sessionKey, id)
	return nil
}

// Context returns the host context (persisting it for continuity), else the last
// persisted context, else nil.
func (m *Manager) Context(ctx context.Context) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentContext(ctx)
}

// SetContext replaces the persisted context.
func (m *Manager) SetContext(ctx context.Context, c Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistContext(ctx, c)
}

// UpdateContext merges patch over the current context and persists the result.
func (m *Manager) UpdateContext(ctx context.Context, patch Context) Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	var merged Context
	if current := m.currentContext(ctx); current != nil {
		merged = *current
	}
	merged = merged.Merge(patch)
	m.persistContext(ctx, merged)
	return merged
}

// Reset clears the session token and context; the next SessionID call mints a new token.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = ""
	for _, key := range []string{m.sessionKey, m.contextKey} {
		if err := m.storage.Remove(ctx, key); err != nil {
			m.logger.Warn("session: remove failed", "key", key, "error", err)
		}
	}
}

func (m *Manager) currentContext(ctx context.Context) *Context {
	if m.host != nil {
		if hc, ok := m.host.HostContext(); ok {
			if hc.Source == "" {
				hc.Source = defaultSource
			}
			m.persistContext(ctx, hc)
			return &hc
		}
	}

	raw, ok := m.read(ctx, m.contextKey)
	if !ok || raw == "" {
		return nil
	}
	var stored Context
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		m.logger.Warn("session: stored context is not valid JSON", "error", err)
		return nil
	}
	return &stored
}

func (m *Manager) persistContext(ctx context.Context, c Context) {
	data, err := json.Marshal(c)
	if err != nil {
		m.logger.Warn("session: encode context failed", "error", err)
		return
	}
	m.write(ctx, m.contextKey, string(data))
}

func (m *Manager) read(ctx context.Context, key string) (string, bool) {
	v, ok, err := m.storage.Get(ctx, key)
	if err != nil {
		m.logger.Warn("session: read failed", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (m *Manager) write(ctx context.Context, key, value string) {
	if err := m.storage.Set(ctx, key, value); err != nil {
		m.logger.Warn("session: write failed", "key", key, "error", err)
	}
}

// GenerateSessionID builds "session_<base36 millis>_<random>".
func GenerateSessionID(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return "session_" + ts + "_" + random
}
