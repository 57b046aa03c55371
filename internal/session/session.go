// Package session holds the authenticated user and bearer token. The gateway
// never verifies signatures (it is not the issuer); it only reads the claims
// to know when the token expires.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("access token cannot be decoded")
	ErrTokenExpired = errors.New("access token has expired")
)

type User struct {
	ID    domain.ID `json:"id"`
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
	Role  string    `json:"role,omitempty"`
}

type Session struct {
	Token     string    `json:"-"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (s Session) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Manager owns the session keys of the local store.
type Manager struct {
	mu       sync.RWMutex
	current  *Session
	store    store.Store
	log      *slog.Logger
	now      func() time.Time
	onLogout []func(context.Context)
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager restores a persisted session. An expired or undecodable one is
// removed from the store.
func NewManager(ctx context.Context, s store.Store, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store: s,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.restore(ctx)
	return m
}

func (m *Manager) restore(ctx context.Context) {
	raw, err := m.store.Get(ctx, store.KeyAccessToken)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		m.log.Warn("session restore failed", "error", err)
		return
	}

	var user User
	if _, err := store.LoadJSON(ctx, m.store, store.KeyCurrentUser, &user); err != nil {
		m.log.Warn("discarding unreadable persisted user", "error", err)
		m.discard(ctx)
		return
	}

	sess, err := m.build(string(raw), user)
	if err != nil {
		m.log.Info("discarding persisted session", "reason", err)
		m.discard(ctx)
		return
	}
	m.current = &sess
}

func (m *Manager) build(token string, user User) (Session, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sess := Session{Token: token, User: user}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	if sess.User.ID == "" {
		sess.User.ID = domain.ID(claims.Subject)
	}
	if sess.expired(m.now()) {
		return Session{}, ErrTokenExpired
	}
	return sess, nil
}

func (m *Manager) discard(ctx context.Context) {
	for _, key := range []string{store.KeyAccessToken, store.KeyCurrentUser} {
		if err := m.store.Delete(ctx, key); err != nil {
			m.log.Warn("session key delete failed", "key", key, "error", err)
		}
	}
}

// Login replaces the current session.
func (m *Manager) Login(ctx context.Context, token string, user User) (Session, error) {
	sess, err := m.build(token, user)
	if err != nil {
		return Session{}, err
	}

	if err := m.store.Set(ctx, store.KeyAccessToken, []byte(token)); err != nil {
		return Session{}, fmt.Errorf("persist token: %w", err)
	}
	if err := store.SaveJSON(ctx, m.store, store.KeyCurrentUser, sess.User); err != nil {
		return Session{}, fmt.Errorf("persist user: %w", err)
	}

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()

	m.log.Info("session started", "user_id", sess.User.ID)
	return sess, nil
}

// Logout drops the session and runs the registered teardown hooks.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.current = nil
	hooks := append([]func(context.Context){}, m.onLogout...)
	m.mu.Unlock()

	m.discard(ctx)
	for _, fn := range hooks {
		fn(ctx)
	}
	m.log.Info("session ended")
}

// OnLogout registers fn to run after every Logout.
func (m *Manager) OnLogout(fn func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// Current returns the live session. An expired session is reported as absent.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.expired(m.now()) {
		return Session{}, false
	}
	return *m.current, true
}

// Token implements remote.TokenSource.
func (m *Manager) Token() (string, bool) {
	sess, ok := m.Current()
	if !ok {
		return "", false
	}
	return sess.Token, true
}
