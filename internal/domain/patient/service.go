package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/medpanel/medpanel/internal/platform/cache"
	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/pkg/sanitize"
)

// ErrNotFound means no patient with that id belongs to the requesting
// doctor. Records owned by other doctors are indistinguishable from
// records that do not exist.
var ErrNotFound = errors.New("patient: not found")

// ValidationError carries a user-facing message for a rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// validFecha requires the shape and a real calendar date, so month 13 or
// February 30 fail here instead of at the database cast.
func validFecha(fecha string) bool {
	if !dateRe.MatchString(fecha) {
		return false
	}
	_, err := time.Parse("2006-01-02", fecha)
	return err == nil
}

// Service implements patient record management for one doctor.
type Service struct {
	repo     Repository
	mon      *monitor.Monitor
	cache    cache.Store
	cacheTTL time.Duration
}

func NewService(repo Repository, mon *monitor.Monitor) *Service {
	return &Service{repo: repo, mon: mon}
}

// WithCache memoizes List results per doctor. Mutations invalidate the
// doctor's entry, so a short TTL is enough.
func (s *Service) WithCache(store cache.Store, ttl time.Duration) *Service {
	s.cache = store
	s.cacheTTL = ttl
	return s
}

// List returns the doctor's patients, newest first, with notes attached.
func (s *Service) List(ctx context.Context, doctorID int64) ([]*Patient, error) {
	key := listCacheKey(doctorID)
	if s.cache != nil {
		if raw, err := s.cache.Get(key); err == nil {
			var patients []*Patient
			if err := json.Unmarshal(raw, &patients); err == nil {
				return patients, nil
			}
		}
	}

	patients, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if raw, err := json.Marshal(patients); err == nil {
			// A failed Set only costs the memoization.
			_ = s.cache.Set(key, raw, s.cacheTTL)
		}
	}
	return patients, nil
}

func listCacheKey(doctorID int64) string {
	return fmt.Sprintf("patients:%d", doctorID)
}

func (s *Service) invalidate(doctorID int64) {
	if s.cache != nil {
		_ = s.cache.Delete(listCacheKey(doctorID))
	}
}

// Create registers a new patient for the doctor.
func (s *Service) Create(ctx context.Context, doctorID int64, req CreateRequest) (*Patient, error) {
	nombre := sanitize.String(req.Nombre)
	email := sanitize.String(req.Email)
	telefono := sanitize.String(req.Telefono)

	if nombre == "" || email == "" {
		return nil, &ValidationError{Msg: "Nombre y email son obligatorios"}
	}
	if !sanitize.ValidEmail(email) {
		return nil, &ValidationError{Msg: "Email inválido"}
	}

	p := &Patient{
		DoctorID: doctorID,
		Nombre:   nombre,
		Email:    email,
		Telefono: telefono,
		Notas:    []Note{},
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(doctorID)
	return p, nil
}

// Update modifies a patient the doctor owns. Targeting another doctor's
// patient is reported as not found.
func (s *Service) Update(ctx context.Context, doctorID int64, req UpdateRequest) error {
	nombre := sanitize.String(req.Nombre)
	email := sanitize.String(req.Email)
	telefono := sanitize.String(req.Telefono)

	if req.ID <= 0 || nombre == "" || email == "" {
		return &ValidationError{Msg: "Datos inválidos"}
	}

	ok, err := s.repo.Update(ctx, &Patient{
		ID:       req.ID,
		DoctorID: doctorID,
		Nombre:   nombre,
		Email:    email,
		Telefono: telefono,
	})
	if err != nil {
		return err
	}
	if !ok {
		s.logOwnershipMiss(doctorID, req.ID, "update")
		return ErrNotFound
	}
	s.invalidate(doctorID)
	return nil
}

// Delete removes a patient and all dependent records atomically.
func (s *Service) Delete(ctx context.Context, doctorID, patientID int64) error {
	if patientID <= 0 {
		return &ValidationError{Msg: "ID de paciente inválido"}
	}

	deleted, err := s.repo.Delete(ctx, patientID, doctorID)
	if err != nil {
		return err
	}
	if !deleted {
		s.logOwnershipMiss(doctorID, patientID, "delete")
		return ErrNotFound
	}
	s.invalidate(doctorID)
	return nil
}

// AddNote attaches a note to a patient the doctor owns. An empty fecha
// defaults to today at the database.
func (s *Service) AddNote(ctx context.Context, doctorID, patientID int64, req NoteRequest) error {
	texto := sanitize.String(req.Texto)
	fecha := sanitize.String(req.Fecha)

	if patientID <= 0 || texto == "" {
		return &ValidationError{Msg: "Datos inválidos"}
	}
	if fecha != "" && !validFecha(fecha) {
		return &ValidationError{Msg: "Formato de fecha inválido (YYYY-MM-DD)"}
	}

	owned, err := s.repo.OwnedBy(ctx, patientID, doctorID)
	if err != nil {
		return err
	}
	if !owned {
		s.logOwnershipMiss(doctorID, patientID, "add_note")
		return ErrNotFound
	}

	if err := s.repo.AddNote(ctx, patientID, texto, fecha); err != nil {
		return err
	}
	s.invalidate(doctorID)
	return nil
}

func (s *Service) logOwnershipMiss(doctorID, patientID int64, op string) {
	s.mon.Security("ownership_violation", monitor.SeverityWarning, map[string]any{
		"doctor_id":  doctorID,
		"patient_id": patientID,
		"operation":  op,
	})
}
