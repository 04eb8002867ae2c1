package identity

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/internal/platform/session"
)

type mockRepo struct {
	doctors map[string]*Doctor
	nextID  int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{doctors: make(map[string]*Doctor), nextID: 1}
}

func (m *mockRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = m.nextID
	m.nextID++
	d.CreatedAt = time.Now()
	m.doctors[d.Name] = d
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*Doctor, error) {
	if d, ok := m.doctors[username]; ok {
		return d, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Exists(_ context.Context, username, email string) (bool, error) {
	for _, d := range m.doctors {
		if d.Name == username || d.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func seedDoctor(t *testing.T, repo *mockRepo) *Doctor {
	t.Helper()
	hash, err := HashPassword("TestPass123!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	d := &Doctor{Name: "testdoctor", Email: "doc@example.com", PasswordHash: hash}
	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return d
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, session.NewLoginLimiter(), monitor.Nop())
}

func TestLoginSuccess(t *testing.T) {
	repo := newMockRepo()
	seeded := seedDoctor(t, repo)
	svc := newTestService(repo)

	d, err := svc.Login(context.Background(), LoginRequest{Username: "testdoctor", Password: "TestPass123!"}, "192.0.2.10")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if d.ID != seeded.ID {
		t.Errorf("doctor id = %d, want %d", d.ID, seeded.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockRepo()
	seedDoctor(t, repo)
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "testdoctor", Password: "WrongPass1!"}, "192.0.2.10")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUserSameError(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "nobody", Password: "whatever1"}, "192.0.2.10")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user must yield the same error as a bad password, got %v", err)
	}
}

func TestLoginValidation(t *testing.T) {
	svc := newTestService(newMockRepo())
	cases := []struct {
		name string
		req  LoginRequest
		msg  string
	}{
		{"empty", LoginRequest{}, "Todos los campos son obligatorios"},
		{"short username", LoginRequest{Username: "ab", Password: "longenough"}, "El nombre de usuario debe tener entre 3 y 50 caracteres"},
		{"short password", LoginRequest{Username: "testdoctor", Password: "abc"}, "La contraseña debe tener al menos 6 caracteres"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req, "192.0.2.10")
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if verr.Msg != tc.msg {
				t.Errorf("msg = %q, want %q", verr.Msg, tc.msg)
			}
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	repo := newMockRepo()
	seedDoctor(t, repo)
	dir := t.TempDir()
	svc := NewService(repo, session.NewLoginLimiter(), monitor.New(monitor.Config{Dir: dir}))

	// Five failures exhaust the window.
	for i := 0; i < 5; i++ {
		_, err := svc.Login(context.Background(), LoginRequest{Username: "testdoctor", Password: "WrongPass1!"}, "192.0.2.10")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i+1, err)
		}
	}

	// The sixth attempt is rejected even with the correct password.
	_, err := svc.Login(context.Background(), LoginRequest{Username: "testdoctor", Password: "TestPass123!"}, "192.0.2.10")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}

	// Every failure and the breach itself carry the caller's address.
	data, err := os.ReadFile(filepath.Join(dir, "security.log"))
	if err != nil {
		t.Fatalf("read security log: %v", err)
	}
	var sawBreach bool
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if entry["remote_ip"] != "192.0.2.10" {
			t.Errorf("event %v: remote_ip = %v, want 192.0.2.10", entry["event"], entry["remote_ip"])
		}
		if entry["event"] == "login_rate_limited" {
			sawBreach = true
		}
	}
	if !sawBreach {
		t.Error("expected a login_rate_limited event")
	}
}

func TestLoginSuccessResetsLimiter(t *testing.T) {
	repo := newMockRepo()
	seedDoctor(t, repo)
	svc := newTestService(repo)

	for i := 0; i < 4; i++ {
		svc.Login(context.Background(), LoginRequest{Username: "testdoctor", Password: "WrongPass1!"}, "192.0.2.10")
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "testdoctor", Password: "TestPass123!"}, "192.0.2.10"); err != nil {
		t.Fatalf("login within limit: %v", err)
	}

	// The counter restarted, so another few failures are tolerated again.
	for i := 0; i < 4; i++ {
		svc.Login(context.Background(), LoginRequest{Username: "testdoctor", Password: "WrongPass1!"}, "192.0.2.10")
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "testdoctor", Password: "TestPass123!"}, "192.0.2.10"); err != nil {
		t.Errorf("login after reset: %v", err)
	}
}

func TestRegisterSuccess(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	d, err := svc.Register(context.Background(), RegisterRequest{
		Username:     "newdoc",
		Email:        "new@example.com",
		Password:     "Secure1Pass!",
		Nombre:       "Ana",
		Especialidad: "Cardiología",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if d.ID == 0 {
		t.Error("expected assigned id")
	}
	if d.PasswordHash == "Secure1Pass!" {
		t.Error("password stored in plaintext")
	}

	// The new account can log in.
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "newdoc", Password: "Secure1Pass!"}, "192.0.2.10"); err != nil {
		t.Errorf("login after register: %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	svc := newTestService(newMockRepo())
	weak := []string{"Sh0rt!a", "nouppercase1!", "NOLOWERCASE1!", "NoDigits!!", "NoSymbols11"}
	for _, pw := range weak {
		_, err := svc.Register(context.Background(), RegisterRequest{
			Username: "newdoc", Email: "n@example.com", Password: pw, Nombre: "Ana",
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("password %q: got %v, want ValidationError", pw, err)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	repo := newMockRepo()
	seedDoctor(t, repo)
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "testdoctor", Email: "other@example.com", Password: "Secure1Pass!", Nombre: "Ana",
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate username: got %v, want ErrDuplicate", err)
	}

	_, err = svc.Register(context.Background(), RegisterRequest{
		Username: "otherdoc", Email: "doc@example.com", Password: "Secure1Pass!", Nombre: "Ana",
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email: got %v, want ErrDuplicate", err)
	}
}

func TestCurrentUser(t *testing.T) {
	repo := newMockRepo()
	d := seedDoctor(t, repo)
	svc := newTestService(repo)

	info, err := svc.CurrentUser(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if info.Nombre != "testdoctor" || info.Email != "doc@example.com" {
		t.Errorf("got %+v", info)
	}
	if info.Apellido != "" {
		t.Errorf("apellido = %q, want empty", info.Apellido)
	}
}

func TestCurrentUserMissingDoctor(t *testing.T) {
	svc := newTestService(newMockRepo())

	_, err := svc.CurrentUser(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
