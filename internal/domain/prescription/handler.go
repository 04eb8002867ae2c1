package prescription

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/internal/platform/session"
)

type Handler struct {
	svc *Service
	mon *monitor.Monitor
}

func NewHandler(svc *Service, mon *monitor.Monitor) *Handler {
	return &Handler{svc: svc, mon: mon}
}

func (h *Handler) RegisterRoutes(authed *echo.Group) {
	authed.GET("/prescriptions", h.List)
	authed.POST("/prescriptions", h.Create)
	authed.PUT("/prescriptions", h.Update)
	authed.DELETE("/prescriptions", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	s := session.FromContext(c)
	prescriptions, err := h.svc.List(c.Request().Context(), s.DoctorID)
	if err != nil {
		return h.writeError(c, err)
	}
	if prescriptions == nil {
		prescriptions = []*Prescription{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"prescriptions": prescriptions,
	})
}

func (h *Handler) Create(c echo.Context) error {
	s := session.FromContext(c)
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Datos inválidos"})
	}

	p, err := h.svc.Create(c.Request().Context(), s.DoctorID, req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Receta creada exitosamente",
		"prescription_id": p.ID,
	})
}

func (h *Handler) Update(c echo.Context) error {
	s := session.FromContext(c)
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Datos inválidos"})
	}

	if err := h.svc.Update(c.Request().Context(), s.DoctorID, req); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Receta actualizada exitosamente",
	})
}

func (h *Handler) Delete(c echo.Context) error {
	s := session.FromContext(c)
	var req DeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Datos inválidos"})
	}

	if err := h.svc.Delete(c.Request().Context(), s.DoctorID, req.ID); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Receta eliminada exitosamente",
	})
}

func (h *Handler) writeError(c echo.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": verr.Msg})
	case errors.Is(err, ErrPatientNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Paciente no encontrado"})
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Receta no encontrada"})
	default:
		h.mon.Error(err, "prescription request failed", map[string]any{"path": c.Request().URL.Path})
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error interno del servidor"})
	}
}
