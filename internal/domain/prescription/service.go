package prescription

import (
	"context"
	"errors"

	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/pkg/sanitize"
)

var (
	// ErrNotFound means no prescription with that id belongs to the doctor.
	ErrNotFound = errors.New("prescription: not found")
	// ErrPatientNotFound means the referenced patient does not belong to
	// the doctor.
	ErrPatientNotFound = errors.New("prescription: patient not found")
)

// ValidationError carries a user-facing message for a rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// PatientDirectory answers ownership questions about patients. Satisfied
// by the patient repository.
type PatientDirectory interface {
	OwnedBy(ctx context.Context, id, doctorID int64) (bool, error)
}

// Service implements prescription management for one doctor.
type Service struct {
	repo     Repository
	patients PatientDirectory
	mon      *monitor.Monitor
}

func NewService(repo Repository, patients PatientDirectory, mon *monitor.Monitor) *Service {
	return &Service{repo: repo, patients: patients, mon: mon}
}

// List returns the doctor's prescriptions, newest first.
func (s *Service) List(ctx context.Context, doctorID int64) ([]*Prescription, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

// Create issues a prescription for a patient the doctor owns.
func (s *Service) Create(ctx context.Context, doctorID int64, req CreateRequest) (*Prescription, error) {
	medicamento := sanitize.String(req.Medicamento)
	dosis := sanitize.String(req.Dosis)
	frecuencia := sanitize.String(req.Frecuencia)

	if req.PatientID <= 0 || medicamento == "" || dosis == "" || frecuencia == "" || req.Duracion <= 0 {
		return nil, &ValidationError{Msg: "Todos los campos son obligatorios"}
	}

	if err := s.checkPatient(ctx, doctorID, req.PatientID, "create_prescription"); err != nil {
		return nil, err
	}

	p := &Prescription{
		PatientID:   req.PatientID,
		DoctorID:    doctorID,
		Medicamento: medicamento,
		Dosis:       dosis,
		Frecuencia:  frecuencia,
		Duracion:    req.Duracion,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update modifies a prescription the doctor owns.
func (s *Service) Update(ctx context.Context, doctorID int64, req UpdateRequest) error {
	medicamento := sanitize.String(req.Medicamento)
	dosis := sanitize.String(req.Dosis)
	frecuencia := sanitize.String(req.Frecuencia)

	if req.ID <= 0 || req.PatientID <= 0 || medicamento == "" || dosis == "" || frecuencia == "" || req.Duracion <= 0 {
		return &ValidationError{Msg: "Datos inválidos"}
	}

	if err := s.checkPatient(ctx, doctorID, req.PatientID, "update_prescription"); err != nil {
		return err
	}

	ok, err := s.repo.Update(ctx, &Prescription{
		ID:          req.ID,
		PatientID:   req.PatientID,
		DoctorID:    doctorID,
		Medicamento: medicamento,
		Dosis:       dosis,
		Frecuencia:  frecuencia,
		Duracion:    req.Duracion,
	})
	if err != nil {
		return err
	}
	if !ok {
		s.logOwnershipMiss(doctorID, req.ID, "update")
		return ErrNotFound
	}
	return nil
}

// Delete revokes a prescription the doctor owns.
func (s *Service) Delete(ctx context.Context, doctorID, id int64) error {
	if id <= 0 {
		return &ValidationError{Msg: "ID de receta inválido"}
	}

	deleted, err := s.repo.Delete(ctx, id, doctorID)
	if err != nil {
		return err
	}
	if !deleted {
		s.logOwnershipMiss(doctorID, id, "delete")
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

func (s *Service) logOwnershipMiss(doctorID, prescriptionID int64, op string) {
	s.mon.Security("ownership_violation", monitor.SeverityWarning, map[string]any{
		"doctor_id":       doctorID,
		"prescription_id": prescriptionID,
		"operation":       op,
	})
}
