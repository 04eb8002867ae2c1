package patient

import (
	"errors"
	"net/http"
	"strconv"

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

// RegisterRoutes mounts the patient endpoints on the authenticated group.
// Update and delete carry the record id in the JSON body, matching the
// browser client.
func (h *Handler) RegisterRoutes(authed *echo.Group) {
	authed.GET("/patients", h.List)
	authed.POST("/patients", h.Create)
	authed.PUT("/patients", h.Update)
	authed.DELETE("/patients", h.Delete)
	authed.POST("/patients/:id/notes", h.AddNote)
}

func (h *Handler) List(c echo.Context) error {
	s := session.FromContext(c)
	patients, err := h.svc.List(c.Request().Context(), s.DoctorID)
	if err != nil {
		return h.writeError(c, err)
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"patients": patients,
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
		"success":    true,
		"message":    "Paciente creado exitosamente",
		"patient_id": p.ID,
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
		"message": "Paciente actualizado exitosamente",
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
		"message": "Paciente eliminado exitosamente",
	})
}

func (h *Handler) AddNote(c echo.Context) error {
	s := session.FromContext(c)
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID de paciente inválido"})
	}

	var req NoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Datos inválidos"})
	}

	if err := h.svc.AddNote(c.Request().Context(), s.DoctorID, patientID, req); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Nota agregada exitosamente",
	})
}

func (h *Handler) writeError(c echo.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": verr.Msg})
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Paciente no encontrado"})
	default:
		h.mon.Error(err, "patient request failed", map[string]any{"path": c.Request().URL.Path})
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error interno del servidor"})
	}
}
