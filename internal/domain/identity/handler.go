package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/internal/platform/session"
)

type Handler struct {
	svc      *Service
	sessions *session.Manager
	mon      *monitor.Monitor
}

func NewHandler(svc *Service, sessions *session.Manager, mon *monitor.Monitor) *Handler {
	return &Handler{svc: svc, sessions: sessions, mon: mon}
}

// RegisterRoutes mounts auth endpoints. Login and register are public;
// everything else runs behind the session middleware.
func (h *Handler) RegisterRoutes(public, authed *echo.Group) {
	public.POST("/login", h.Login)
	public.POST("/register", h.Register)

	authed.POST("/logout", h.Logout)
	authed.GET("/user", h.User)
	authed.GET("/session/check", h.SessionCheck)
	authed.POST("/session/extend", h.SessionExtend)
	authed.GET("/csrf-token", h.CSRFToken)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Datos inválidos"})
	}

	doctor, err := h.svc.Login(c.Request().Context(), req, c.RealIP())
	if err != nil {
		return h.writeError(c, err)
	}

	// A fresh identifier on every login defeats session fixation. Any
	// pre-login session is discarded outright.
	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		h.sessions.Destroy(cookie.Value)
	}
	s := h.sessions.Create(doctor.ID, doctor.Name)
	c.SetCookie(h.sessions.Cookie(s.ID))

	token, err := h.sessions.CSRFToken(s.ID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Inicio de sesión exitoso",
		"csrf_token": token,
		"user":       userInfo(doctor),
	})
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Datos inválidos"})
	}

	if _, err := h.svc.Register(c.Request().Context(), req); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Registro exitoso",
	})
}

func (h *Handler) Logout(c echo.Context) error {
	s := session.FromContext(c)
	h.sessions.Destroy(s.ID)
	c.SetCookie(h.sessions.Cookie(""))

	h.mon.Security("logout", monitor.SeverityInfo, map[string]any{
		"username": s.Username,
	})
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Sesión cerrada exitosamente",
	})
}

func (h *Handler) User(c echo.Context) error {
	s := session.FromContext(c)
	info, err := h.svc.CurrentUser(c.Request().Context(), s.DoctorID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    info,
	})
}

func (h *Handler) SessionCheck(c echo.Context) error {
	s := session.FromContext(c)
	remaining, err := h.sessions.RemainingIdle(s.ID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      s.Username,
		"expires_in":    int(remaining.Seconds()),
	})
}

// SessionExtend refreshes the idle window. The session middleware already
// slid the window when it resolved the session; this just reports back.
func (h *Handler) SessionExtend(c echo.Context) error {
	s := session.FromContext(c)
	remaining, err := h.sessions.RemainingIdle(s.ID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"expires_in": int(remaining.Seconds()),
	})
}

// CSRFToken returns the session-wide token, or a named single-use token
// when the form query parameter is present.
func (h *Handler) CSRFToken(c echo.Context) error {
	s := session.FromContext(c)

	if form := c.QueryParam("form"); form != "" {
		token, err := h.sessions.IssueFormToken(s.ID, form)
		if err != nil {
			return h.writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"csrf_token": token, "form": form})
	}

	token, err := h.sessions.CSRFToken(s.ID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) writeError(c echo.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": verr.Msg})
	case errors.Is(err, ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Credenciales inválidas"})
	case errors.Is(err, ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Demasiados intentos fallidos. Intente nuevamente en 15 minutos"})
	case errors.Is(err, ErrDuplicate):
		return c.JSON(http.StatusConflict, map[string]string{"error": "El usuario o email ya están registrados"})
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Usuario no encontrado"})
	default:
		h.mon.Error(err, "auth request failed", map[string]any{"path": c.Request().URL.Path})
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error interno del servidor"})
	}
}
