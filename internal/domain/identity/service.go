package identity

import (
	"context"
	"errors"
	"regexp"

	"github.com/jackc/pgx/v5"

	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/internal/platform/session"
	"github.com/medpanel/medpanel/pkg/sanitize"
)

var (
	// ErrInvalidCredentials covers both unknown username and wrong
	// password so the response does not leak which accounts exist.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrRateLimited means too many failed attempts for this username.
	ErrRateLimited = errors.New("identity: rate limited")
	// ErrDuplicate means the username or email is already taken.
	ErrDuplicate = errors.New("identity: duplicate account")
	// ErrNotFound means the authenticated doctor no longer exists.
	ErrNotFound = errors.New("identity: doctor not found")
)

// ValidationError carries a user-facing message for a rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

var (
	hasUpper  = regexp.MustCompile(`[A-Z]`)
	hasLower  = regexp.MustCompile(`[a-z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
	hasSymbol = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// Service implements doctor authentication and registration.
type Service struct {
	repo    Repository
	limiter *session.LoginLimiter
	mon     *monitor.Monitor
}

// NewService wires the auth service.
func NewService(repo Repository, limiter *session.LoginLimiter, mon *monitor.Monitor) *Service {
	return &Service{repo: repo, limiter: limiter, mon: mon}
}

// Login authenticates a doctor. Failed attempts count against the per
// username rate limit; a success clears the counter. remoteIP is the
// caller's address for the security log.
func (s *Service) Login(ctx context.Context, req LoginRequest, remoteIP string) (*Doctor, error) {
	username := sanitize.String(req.Username)
	password := req.Password

	if username == "" || password == "" {
		return nil, &ValidationError{Msg: "Todos los campos son obligatorios"}
	}
	if len(username) < 3 || len(username) > 50 {
		return nil, &ValidationError{Msg: "El nombre de usuario debe tener entre 3 y 50 caracteres"}
	}
	if len(password) < 6 {
		return nil, &ValidationError{Msg: "La contraseña debe tener al menos 6 caracteres"}
	}

	if !s.limiter.Allowed(username) {
		s.mon.Security("login_rate_limited", monitor.SeverityWarning, map[string]any{
			"username":  username,
			"remote_ip": remoteIP,
		})
		return nil, ErrRateLimited
	}

	doctor, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.limiter.RecordFailure(username)
			s.mon.Security("login_failed", monitor.SeverityWarning, map[string]any{
				"username":  username,
				"remote_ip": remoteIP,
				"reason":    "unknown_user",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := VerifyPassword(password, doctor.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.limiter.RecordFailure(username)
		s.mon.Security("login_failed", monitor.SeverityWarning, map[string]any{
			"username":  username,
			"remote_ip": remoteIP,
			"reason":    "bad_password",
		})
		return nil, ErrInvalidCredentials
	}

	s.limiter.Reset(username)
	s.mon.Security("login_success", monitor.SeverityInfo, map[string]any{
		"username":  username,
		"remote_ip": remoteIP,
	})
	return doctor, nil
}

// Register creates a new doctor account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Doctor, error) {
	username := sanitize.String(req.Username)
	email := sanitize.String(req.Email)
	nombre := sanitize.String(req.Nombre)
	especialidad := sanitize.String(req.Especialidad)
	password := req.Password

	if username == "" || email == "" || password == "" || nombre == "" {
		return nil, &ValidationError{Msg: "Todos los campos obligatorios deben ser completados"}
	}
	if !sanitize.ValidEmail(email) {
		return nil, &ValidationError{Msg: "El formato del email no es válido"}
	}
	if !validPassword(password) {
		return nil, &ValidationError{Msg: "La contraseña debe tener al menos 8 caracteres, incluir mayúsculas, minúsculas, números y símbolos"}
	}
	if len(username) < 3 || len(username) > 50 {
		return nil, &ValidationError{Msg: "El nombre de usuario debe tener entre 3 y 50 caracteres"}
	}
	if len(nombre) < 2 {
		return nil, &ValidationError{Msg: "El nombre debe tener al menos 2 caracteres"}
	}

	exists, err := s.repo.Exists(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicate
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	doctor := &Doctor{
		Name:           username,
		Email:          email,
		PasswordHash:   hash,
		Specialization: especialidad,
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, err
	}

	s.mon.Security("account_registered", monitor.SeverityInfo, map[string]any{
		"username": username,
	})
	return doctor, nil
}

// CurrentUser resolves the profile of an authenticated doctor. A session
// can outlive its account, so a missing row maps to ErrNotFound instead
// of a storage error.
func (s *Service) CurrentUser(ctx context.Context, doctorID int64) (*UserInfo, error) {
	doctor, err := s.repo.GetByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return userInfo(doctor), nil
}

func userInfo(d *Doctor) *UserInfo {
	return &UserInfo{
		ID:           d.ID,
		Nombre:       d.Name,
		Apellido:     "",
		Especialidad: d.Specialization,
		Email:        d.Email,
	}
}

func validPassword(p string) bool {
	return len(p) >= 8 &&
		hasUpper.MatchString(p) &&
		hasLower.MatchString(p) &&
		hasDigit.MatchString(p) &&
		hasSymbol.MatchString(p)
}
