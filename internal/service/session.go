package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/flexprice/staffdesk/internal/cache"
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/types"
)

const defaultSessionTTL = 30 * time.Minute

// Backends resolves the adapter for a backend kind
type Backends interface {
	Get(ctx context.Context, kind types.BackendKind) (employee.Repository, error)
	Available() []types.BackendKind
}

// SessionManager keeps one coordinator per client session. Entries expire
// after the configured TTL of inactivity.
type SessionManager struct {
	cache       cache.Cache
	backends    Backends
	defaultKind types.BackendKind
	ttl         time.Duration
	logger      *logger.Logger

	// serializes session creation so two concurrent first requests share a coordinator
	mu sync.Mutex
}

func NewSessionManager(cfg *config.Configuration, c cache.Cache, backends Backends, log *logger.Logger) *SessionManager {
	ttl := cfg.Session.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	kind := cfg.Backend.Default
	if kind == "" {
		kind = types.BackendSheet
	}
	m := &SessionManager{
		cache:       c,
		backends:    backends,
		defaultKind: kind,
		ttl:         ttl,
		logger:      log,
	}
	if ev, ok := c.(evictionNotifier); ok {
		ev.OnEvicted(m.onEvicted)
	}
	return m
}

type evictionNotifier interface {
	OnEvicted(fn func(key string, value interface{}))
}

// onEvicted stops the work of sessions that expired or ended
func (m *SessionManager) onEvicted(key string, value interface{}) {
	if !strings.HasPrefix(key, cache.PrefixSession) {
		return
	}
	if coord, ok := value.(*Coordinator); ok {
		coord.Close()
		m.logger.Debugw("session closed", "session_id", strings.TrimPrefix(key, cache.PrefixSession))
	}
}

// Backends returns the backend resolver sessions are built from
func (m *SessionManager) Backends() Backends {
	return m.backends
}

// Coordinator returns the coordinator for sessionID, starting a new session
// on the default backend if none exists
func (m *SessionManager) Coordinator(ctx context.Context, sessionID string) (*Coordinator, error) {
	if sessionID == "" {
		return nil, ierr.NewError("session id is required").
			WithHintf("Request must carry the %s header", types.HeaderSessionID).
			Mark(ierr.ErrValidation)
	}

	key := cache.GenerateKey(cache.PrefixSession, sessionID)
	if coord, ok := m.lookup(ctx, key); ok {
		return coord, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if coord, ok := m.lookup(ctx, key); ok {
		return coord, nil
	}

	repo, err := m.backends.Get(ctx, m.defaultKind)
	if err != nil {
		return nil, err
	}

	coord := NewCoordinator(m.defaultKind, repo, m.logger.With("session_id", sessionID))
	m.cache.Set(ctx, key, coord, m.ttl)
	m.logger.Infow("session started", "session_id", sessionID, "backend", m.defaultKind)
	return coord, nil
}

// lookup returns the cached coordinator and extends its expiry
func (m *SessionManager) lookup(ctx context.Context, key string) (*Coordinator, bool) {
	v, ok := m.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	coord, ok := v.(*Coordinator)
	if !ok {
		return nil, false
	}
	m.cache.Set(ctx, key, coord, m.ttl)
	return coord, true
}

// Switch moves the session to another backend and loads its records
func (m *SessionManager) Switch(ctx context.Context, sessionID string, kind types.BackendKind) (State, error) {
	if err := kind.Validate(); err != nil {
		return State{}, err
	}

	coord, err := m.Coordinator(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	repo, err := m.backends.Get(ctx, kind)
	if err != nil {
		return coord.Snapshot(), err
	}

	return coord.Switch(ctx, kind, repo)
}

// End drops the session
func (m *SessionManager) End(ctx context.Context, sessionID string) {
	m.cache.Delete(ctx, cache.GenerateKey(cache.PrefixSession, sessionID))
}
