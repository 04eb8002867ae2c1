package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medpanel/medpanel/internal/platform/session"
)

// Logger emits one line per request. The level follows the response
// class: success is info, client faults warn, server faults and handler
// errors error. The username appears once the session middleware has
// resolved the caller.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			res := c.Response()
			var evt *zerolog.Event
			switch {
			case err != nil || res.Status >= 500:
				evt = logger.Error().Err(err)
			case res.Status >= 400:
				evt = logger.Warn()
			default:
				evt = logger.Info()
			}

			if rid, ok := c.Get("request_id").(string); ok && rid != "" {
				evt = evt.Str("request_id", rid)
			}
			if s := session.FromContext(c); s != nil {
				evt = evt.Str("username", s.Username)
			}
			evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Int64("bytes_out", res.Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Msg("request")

			return err
		}
	}
}
