// Package session implements server-side session management for the office
// panel. Sessions are opaque 256-bit identifiers stored in an HTTP-only
// cookie; all state lives on the server. A session expires after a sliding
// idle timeout and its identifier is rotated whenever privileges change.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"
)

// CookieName is the session cookie name.
const CookieName = "medpanel_session"

var (
	// ErrNotFound means no session exists for the given id.
	ErrNotFound = errors.New("session: not found")
	// ErrExpired means the session existed but its idle timeout elapsed.
	ErrExpired = errors.New("session: expired")
)

type formToken struct {
	value     string
	expiresAt time.Time
}

// Session is the server-side state for one authenticated doctor.
type Session struct {
	ID        string
	DoctorID  int64
	Username  string
	CreatedAt time.Time
	LastSeen  time.Time

	csrfToken  string
	formTokens map[string]formToken
}

// Manager owns the in-memory session store.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTimeout time.Duration
	formTTL     time.Duration
	secure      bool
	now         func() time.Time
}

// Config holds session manager settings.
type Config struct {
	// IdleTimeout is the sliding inactivity window after which a session
	// is destroyed.
	IdleTimeout time.Duration
	// FormTokenTTL is how long a named single-use CSRF token stays valid.
	FormTokenTTL time.Duration
	// Secure marks cookies as HTTPS-only.
	Secure bool
}

// NewManager creates an empty session store.
func NewManager(cfg Config) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.FormTokenTTL <= 0 {
		cfg.FormTokenTTL = time.Hour
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		idleTimeout: cfg.IdleTimeout,
		formTTL:     cfg.FormTokenTTL,
		secure:      cfg.Secure,
		now:         time.Now,
	}
}

func newID() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("session: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// Create starts a new session for a doctor and returns it.
func (m *Manager) Create(doctorID int64, username string) *Session {
	now := m.now()
	s := &Session{
		ID:         newID(),
		DoctorID:   doctorID,
		Username:   username,
		CreatedAt:  now,
		LastSeen:   now,
		csrfToken:  newID(),
		formTokens: make(map[string]formToken),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up a session by id, enforcing the idle timeout. A successful
// lookup refreshes the sliding window.
func (m *Manager) Get(id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if now.Sub(s.LastSeen) > m.idleTimeout {
		delete(m.sessions, id)
		return nil, ErrExpired
	}
	s.LastSeen = now
	return s, nil
}

// Peek looks up a session without refreshing the sliding window.
func (m *Manager) Peek(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.now().Sub(s.LastSeen) > m.idleTimeout {
		return nil, ErrExpired
	}
	return s, nil
}

// Rotate reissues the session identifier, keeping all server-side state.
// Called on login to defeat session fixation.
func (m *Manager) Rotate(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.sessions, id)
	s.ID = newID()
	m.sessions[s.ID] = s
	return s, nil
}

// Destroy removes a session. Destroying an absent session is not an error.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// RemainingIdle reports how long until the session expires if left idle.
func (m *Manager) RemainingIdle(id string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return 0, ErrNotFound
	}
	remaining := m.idleTimeout - m.now().Sub(s.LastSeen)
	if remaining < 0 {
		return 0, ErrExpired
	}
	return remaining, nil
}

// Cookie builds the session cookie for a session id. An empty id produces
// an expired cookie suitable for logout.
func (m *Manager) Cookie(id string) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
	if id == "" {
		c.MaxAge = -1
	}
	return c
}

// Sweep removes sessions whose idle timeout already elapsed. Intended to be
// called periodically from a background goroutine.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen) > m.idleTimeout {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
