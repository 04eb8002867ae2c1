package session

import (
	"testing"
	"time"
)

func TestCSRFTokenStableForSession(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)
	s := m.Create(1, "doc")

	t1, err := m.CSRFToken(s.ID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	t2, err := m.CSRFToken(s.ID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if t1 != t2 {
		t.Error("session-wide token must be stable across reads")
	}
	if len(t1) != 64 {
		t.Errorf("token length = %d, want 64", len(t1))
	}
}

func TestValidateCSRF(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)
	s := m.Create(1, "doc")
	tok, _ := m.CSRFToken(s.ID)

	if err := m.ValidateCSRF(s.ID, tok); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	if err := m.ValidateCSRF(s.ID, "wrong"); err != ErrTokenMismatch {
		t.Errorf("got %v, want ErrTokenMismatch", err)
	}
	if err := m.ValidateCSRF(s.ID, ""); err != ErrTokenMismatch {
		t.Errorf("empty token: got %v, want ErrTokenMismatch", err)
	}
	if err := m.ValidateCSRF("nosuch", tok); err != ErrNotFound {
		t.Errorf("unknown session: got %v, want ErrNotFound", err)
	}
}

func TestFormTokenSingleUse(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)
	s := m.Create(1, "doc")

	tok, err := m.IssueFormToken(s.ID, "delete_patient")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := m.ValidateFormToken(s.ID, "delete_patient", tok); err != nil {
		t.Fatalf("first use rejected: %v", err)
	}
	// Replay must fail: the token is consumed on first validation.
	if err := m.ValidateFormToken(s.ID, "delete_patient", tok); err != ErrTokenNotFound {
		t.Errorf("replay: got %v, want ErrTokenNotFound", err)
	}
}

func TestFormTokenMismatchConsumes(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)
	s := m.Create(1, "doc")

	tok, _ := m.IssueFormToken(s.ID, "edit")
	if err := m.ValidateFormToken(s.ID, "edit", "guess"); err != ErrTokenMismatch {
		t.Fatalf("got %v, want ErrTokenMismatch", err)
	}
	// A failed attempt also burns the token.
	if err := m.ValidateFormToken(s.ID, "edit", tok); err != ErrTokenNotFound {
		t.Errorf("got %v, want ErrTokenNotFound", err)
	}
}

func TestFormTokenExpiry(t *testing.T) {
	now := time.Now()
	m := NewManager(Config{IdleTimeout: 24 * time.Hour, FormTokenTTL: time.Hour})
	m.now = func() time.Time { return now }
	s := m.Create(1, "doc")

	tok, _ := m.IssueFormToken(s.ID, "edit")
	now = now.Add(61 * time.Minute)

	if err := m.ValidateFormToken(s.ID, "edit", tok); err != ErrTokenExpired {
		t.Errorf("got %v, want ErrTokenExpired", err)
	}
}

func TestFormTokenReissueReplaces(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)
	s := m.Create(1, "doc")

	first, _ := m.IssueFormToken(s.ID, "edit")
	second, _ := m.IssueFormToken(s.ID, "edit")
	if first == second {
		t.Fatal("reissue must generate a new token")
	}
	if err := m.ValidateFormToken(s.ID, "edit", first); err != ErrTokenMismatch {
		t.Errorf("stale token: got %v, want ErrTokenMismatch", err)
	}
}
