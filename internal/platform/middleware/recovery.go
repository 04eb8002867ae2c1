package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"

	"github.com/medpanel/medpanel/internal/platform/monitor"
)

// Recovery converts a handler panic into the standard Spanish 500
// response and records the stack in the error log.
func Recovery(mon *monitor.Monitor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := make([]byte, 4096)
					n := runtime.Stack(stack, false)

					rid, _ := c.Get("request_id").(string)
					mon.Error(fmt.Errorf("panic: %v", r), "panic recovered", map[string]any{
						"request_id": rid,
						"method":     c.Request().Method,
						"path":       c.Request().URL.Path,
						"stack":      string(stack[:n]),
					})

					if !c.Response().Committed {
						err = c.JSON(http.StatusInternalServerError,
							map[string]string{"error": "Error interno del servidor"})
					}
				}
			}()
			return next(c)
		}
	}
}
