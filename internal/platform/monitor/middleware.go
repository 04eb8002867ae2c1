package monitor

import (
	"time"

	"github.com/labstack/echo/v4"
)

// AccessLog returns middleware that records every handled request in the
// access log after the handler chain completes.
func AccessLog(m *Monitor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			rid, _ := c.Get("request_id").(string)
			m.Access(
				c.Request().Method,
				c.Request().URL.Path,
				c.Response().Status,
				c.RealIP(),
				rid,
				time.Since(start),
			)
			return err
		}
	}
}
