package session

import (
	"crypto/subtle"
	"errors"
)

var (
	// ErrTokenMismatch means the presented CSRF token does not match.
	ErrTokenMismatch = errors.New("csrf: token mismatch")
	// ErrTokenNotFound means no token was issued under the given name.
	ErrTokenNotFound = errors.New("csrf: token not found")
	// ErrTokenExpired means the named token outlived its TTL.
	ErrTokenExpired = errors.New("csrf: token expired")
)

// CSRFHeader is the request header carrying the CSRF token.
const CSRFHeader = "X-CSRF-Token"

// CSRFFormHeader names the single-use form token a request wants validated
// instead of the session-wide token.
const CSRFFormHeader = "X-CSRF-Form"

// CSRFToken returns the session-wide CSRF token. The token is created with
// the session and lives as long as the session does.
func (m *Manager) CSRFToken(sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	return s.csrfToken, nil
}

// ValidateCSRF checks a presented token against the session-wide token
// using a constant-time comparison.
func (m *Manager) ValidateCSRF(sessionID, token string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(s.csrfToken), []byte(token)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

// IssueFormToken creates a named single-use token. Reissuing under the same
// name replaces the previous token.
func (m *Manager) IssueFormToken(sessionID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	tok := formToken{
		value:     newID(),
		expiresAt: m.now().Add(m.formTTL),
	}
	s.formTokens[name] = tok
	return tok.value, nil
}

// ValidateFormToken consumes a named single-use token. Whatever the outcome,
// the stored token is removed, so a token can never be replayed.
func (m *Manager) ValidateFormToken(sessionID, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	stored, ok := s.formTokens[name]
	if !ok {
		return ErrTokenNotFound
	}
	delete(s.formTokens, name)

	if m.now().After(stored.expiresAt) {
		return ErrTokenExpired
	}
	if subtle.ConstantTimeCompare([]byte(stored.value), []byte(token)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}
