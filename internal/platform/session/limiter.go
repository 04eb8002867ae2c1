package session

import (
	"sync"
	"time"
)

const (
	maxFailedAttempts = 5
	attemptWindow     = 15 * time.Minute
	// attemptLogCap bounds the in-memory attempt log.
	attemptLogCap = 1000
)

type loginAttempt struct {
	username string
	at       time.Time
}

// LoginLimiter tracks failed login attempts per username over a sliding
// window and blocks further attempts once the limit is reached.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts []loginAttempt
	now      func() time.Time
}

// NewLoginLimiter creates an empty limiter.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{now: time.Now}
}

// Allowed reports whether a login attempt for username may proceed.
func (l *LoginLimiter) Allowed(username string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-attemptWindow)
	count := 0
	for _, a := range l.attempts {
		if a.username == username && a.at.After(cutoff) {
			count++
		}
	}
	return count < maxFailedAttempts
}

// RecordFailure logs one failed attempt for username.
func (l *LoginLimiter) RecordFailure(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempts = append(l.attempts, loginAttempt{username: username, at: l.now()})
	if len(l.attempts) > attemptLogCap {
		l.attempts = l.attempts[len(l.attempts)-attemptLogCap:]
	}
}

// Reset clears the attempt history for username after a successful login.
func (l *LoginLimiter) Reset(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.attempts[:0]
	for _, a := range l.attempts {
		if a.username != username {
			kept = append(kept, a)
		}
	}
	l.attempts = kept
}
