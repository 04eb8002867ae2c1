package prescription

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/internal/platform/session"
)

func newTestHandler() (*Handler, *mockRepo, *session.Session) {
	repo := newMockRepo()
	h := NewHandler(newTestService(repo), monitor.Nop())
	sessions := session.NewManager(session.Config{IdleTimeout: 30 * time.Minute})
	return h, repo, sessions.Create(1, "testdoctor")
}

func request(method, path, body string, s *session.Session) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("session", s)
	return rec, c
}

func TestCreateHandler(t *testing.T) {
	h, _, s := newTestHandler()

	rec, c := request(http.MethodPost, "/api/prescriptions",
		`{"patient_id":10,"medicamento":"Amoxicilina","dosis":"500mg","frecuencia":"cada 8 horas","duracion":7}`, s)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Receta creada exitosamente") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateHandlerZeroDuracion(t *testing.T) {
	h, _, s := newTestHandler()

	rec, c := request(http.MethodPost, "/api/prescriptions",
		`{"patient_id":10,"medicamento":"Amoxicilina","dosis":"500mg","frecuencia":"cada 8 horas","duracion":0}`, s)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "Todos los campos son obligatorios" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestListHandlerEmpty(t *testing.T) {
	h, _, s := newTestHandler()

	rec, c := request(http.MethodGet, "/api/prescriptions", "", s)
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"prescriptions":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDeleteHandlerNotFound(t *testing.T) {
	h, _, s := newTestHandler()

	rec, c := request(http.MethodDelete, "/api/prescriptions", `{"id":42}`, s)
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "Receta no encontrada" {
		t.Errorf("error = %q", body["error"])
	}
}
