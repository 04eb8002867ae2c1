package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medpanel/medpanel/internal/platform/monitor"
)

// contextKey is the echo context key under which the session is stored.
const contextKey = "session"

// FromContext returns the authenticated session placed by RequireAuth.
func FromContext(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}

// RequireAuth rejects requests without a live session and, for mutating
// methods, without a valid CSRF token. The session's idle window is
// refreshed on every authenticated request.
func RequireAuth(m *Manager, mon *monitor.Monitor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
			}

			s, err := m.Get(cookie.Value)
			if err != nil {
				if err == ErrExpired {
					mon.Security("session_expired", monitor.SeverityInfo, map[string]any{
						"remote_ip": c.RealIP(),
					})
				}
				c.SetCookie(m.Cookie(""))
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No autorizado"})
			}

			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
				token := c.Request().Header.Get(CSRFHeader)
				var err error
				if form := c.Request().Header.Get(CSRFFormHeader); form != "" {
					// Named tokens are single-use: consumed here whether
					// or not they match.
					err = m.ValidateFormToken(s.ID, form, token)
				} else {
					err = m.ValidateCSRF(s.ID, token)
				}
				if err != nil {
					// A stale token is a timing accident. A wrong or absent
					// token looks like a forged request.
					severity := monitor.SeverityCritical
					if errors.Is(err, ErrTokenExpired) {
						severity = monitor.SeverityWarning
					}
					mon.Security("csrf_validation_failed", severity, map[string]any{
						"username":  s.Username,
						"remote_ip": c.RealIP(),
						"path":      c.Request().URL.Path,
					})
					return c.JSON(http.StatusForbidden, map[string]string{"error": "Token CSRF inválido"})
				}
			}

			c.Set(contextKey, s)
			return next(c)
		}
	}
}
