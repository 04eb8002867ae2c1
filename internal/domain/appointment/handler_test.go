package appointment

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

	rec, c := request(http.MethodPost, "/api/appointments",
		`{"patient_id":10,"fecha":"2026-09-15","hora":"10:30","motivo":"Control"}`, s)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Cita creada exitosamente") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateHandlerBadDate(t *testing.T) {
	h, _, s := newTestHandler()

	// "2025-13-01" matches the shape but is not a real date. It must be
	// rejected here like the malformed one, not at the database cast.
	for _, fecha := range []string{"15-09-2026", "2025-13-01"} {
		rec, c := request(http.MethodPost, "/api/appointments",
			`{"patient_id":10,"fecha":"`+fecha+`","hora":"10:30","motivo":"Control"}`, s)
		if err := h.Create(c); err != nil {
			t.Fatalf("create %s: %v", fecha, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", fecha, rec.Code)
		}
		var body map[string]string
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["error"] != "Formato de fecha inválido (YYYY-MM-DD)" {
			t.Errorf("%s: error = %q", fecha, body["error"])
		}
	}
}

func TestCreateHandlerForeignPatient(t *testing.T) {
	h, _, s := newTestHandler()

	rec, c := request(http.MethodPost, "/api/appointments",
		`{"patient_id":20,"fecha":"2026-09-15","hora":"10:30","motivo":"Control"}`, s)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "Paciente no encontrado" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestListHandlerEmpty(t *testing.T) {
	h, _, s := newTestHandler()

	rec, c := request(http.MethodGet, "/api/appointments", "", s)
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"appointments":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDeleteHandlerNotFound(t *testing.T) {
	h, _, s := newTestHandler()

	rec, c := request(http.MethodDelete, "/api/appointments", `{"id":999}`, s)
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
