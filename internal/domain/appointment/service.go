package appointment

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/pkg/sanitize"
)

var (
	// ErrNotFound means no appointment with that id belongs to the doctor.
	ErrNotFound = errors.New("appointment: not found")
	// ErrPatientNotFound means the referenced patient does not belong to
	// the doctor.
	ErrPatientNotFound = errors.New("appointment: patient not found")
)

// ValidationError carries a user-facing message for a rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// validFecha requires the shape and a real calendar date, so month 13 or
// February 30 fail here instead of at the database cast.
func validFecha(fecha string) bool {
	if !dateRe.MatchString(fecha) {
		return false
	}
	_, err := time.Parse("2006-01-02", fecha)
	return err == nil
}

func validHora(hora string) bool {
	if !timeRe.MatchString(hora) {
		return false
	}
	_, err := time.Parse("15:04", hora)
	return err == nil
}

// PatientDirectory answers ownership questions about patients. Satisfied
// by the patient repository.
type PatientDirectory interface {
	OwnedBy(ctx context.Context, id, doctorID int64) (bool, error)
}

// Service implements appointment scheduling for one doctor.
type Service struct {
	repo     Repository
	patients PatientDirectory
	mon      *monitor.Monitor
}

func NewService(repo Repository, patients PatientDirectory, mon *monitor.Monitor) *Service {
	return &Service{repo: repo, patients: patients, mon: mon}
}

// List returns the doctor's appointments, most recent day first and
// chronological within a day.
func (s *Service) List(ctx context.Context, doctorID int64) ([]*Appointment, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

// Create schedules an appointment. The referenced patient must belong to
// the doctor.
func (s *Service) Create(ctx context.Context, doctorID int64, req CreateRequest) (*Appointment, error) {
	fecha := sanitize.String(req.Fecha)
	hora := sanitize.String(req.Hora)
	motivo := sanitize.String(req.Motivo)

	if req.PatientID <= 0 || fecha == "" || hora == "" || motivo == "" {
		return nil, &ValidationError{Msg: "Todos los campos son obligatorios"}
	}
	if !validFecha(fecha) {
		return nil, &ValidationError{Msg: "Formato de fecha inválido (YYYY-MM-DD)"}
	}
	if !validHora(hora) {
		return nil, &ValidationError{Msg: "Formato de hora inválido (HH:MM)"}
	}

	if err := s.checkPatient(ctx, doctorID, req.PatientID, "create_appointment"); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID: req.PatientID,
		DoctorID:  doctorID,
		Fecha:     fecha,
		Hora:      hora,
		Motivo:    motivo,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update reschedules an appointment the doctor owns. Moving it to another
// patient also requires owning that patient.
func (s *Service) Update(ctx context.Context, doctorID int64, req UpdateRequest) error {
	fecha := sanitize.String(req.Fecha)
	hora := sanitize.String(req.Hora)
	motivo := sanitize.String(req.Motivo)

	if req.ID <= 0 || req.PatientID <= 0 || fecha == "" || hora == "" || motivo == "" {
		return &ValidationError{Msg: "Datos inválidos"}
	}
	if !validFecha(fecha) {
		return &ValidationError{Msg: "Formato de fecha inválido (YYYY-MM-DD)"}
	}
	if !validHora(hora) {
		return &ValidationError{Msg: "Formato de hora inválido (HH:MM)"}
	}

	if err := s.checkPatient(ctx, doctorID, req.PatientID, "update_appointment"); err != nil {
		return err
	}

	ok, err := s.repo.Update(ctx, &Appointment{
		ID:        req.ID,
		PatientID: req.PatientID,
		DoctorID:  doctorID,
		Fecha:     fecha,
		Hora:      hora,
		Motivo:    motivo,
	})
	if err != nil {
		return err
	}
	if !ok {
		s.mon.Security("ownership_violation", monitor.SeverityWarning, map[string]any{
			"doctor_id":      doctorID,
			"appointment_id": req.ID,
			"operation":      "update",
		})
		return ErrNotFound
	}
	return nil
}

// Delete cancels an appointment the doctor owns.
func (s *Service) Delete(ctx context.Context, doctorID, id int64) error {
	if id <= 0 {
		return &ValidationError{Msg: "ID de cita inválido"}
	}

	deleted, err := s.repo.Delete(ctx, id, doctorID)
	if err != nil {
		return err
	}
	if !deleted {
		s.mon.Security("ownership_violation", monitor.SeverityWarning, map[string]any{
			"doctor_id":      doctorID,
			"appointment_id": id,
			"operation":      "delete",
		})
		return ErrNotFound
	}
	return nil
}

func (s *Service) checkPatient(ctx context.Context, doctorID, patientID int64, op string) error {
	owned, err := s.patients.OwnedBy(ctx, patientID, doctorID)
	if err != nil {
		return err
	}
	if !owned {
		s.mon.Security("ownership_violation", monitor.SeverityWarning, map[string]any{
			"doctor_id":  doctorID,
			"patient_id": patientID,
			"operation":  op,
		})
		return ErrPatientNotFound
	}
	return nil
}
